package session

import (
	"strings"

	xerrors "TokenPilot-Chain/internal/errors"
	"TokenPilot-Chain/internal/ledger"
)

// Language 是会话支持的回复语言。
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguageIndonesian Language = "id"
)

// 印尼语的常见功能词，出现任何一个即判定为印尼语。
var indonesianHints = []string{"indonesia", "yang", "kamu", "sudah"}

// DetectLanguage 根据最近一条用户消息推断回复语言。
// 显式要求英语优先生效，默认英语。
func DetectLanguage(text string) Language {
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "english") {
		return LanguageEnglish
	}
	for _, hint := range indonesianHints {
		if strings.Contains(lowered, hint) {
			return LanguageIndonesian
		}
	}
	return LanguageEnglish
}

// languageGuard 生成仅对当前轮次生效的语言锁定指令。
func languageGuard(lang Language) string {
	if lang == LanguageIndonesian {
		return "Balas pengguna dalam bahasa Indonesia untuk giliran ini."
	}
	return "Reply to the user in English for this turn."
}

// sayExecuted 按语言生成执行成功的回复。
func sayExecuted(lang Language, summary, result string) string {
	if lang == LanguageIndonesian {
		return "Transfer berhasil dieksekusi. " + summary + " Referensi penyelesaian: " + result
	}
	return "Transfer executed. " + summary + " Settlement reference: " + result
}

// sayDuplicate 按语言生成重复执行的回复。
func sayDuplicate(lang Language) string {
	if lang == LanguageIndonesian {
		return "Transfer ini sudah pernah dieksekusi dan tidak akan diulang."
	}
	return "This transfer has already been executed and will not run again."
}

// sayFailure 按语言生成执行失败的回复。
func sayFailure(lang Language, reason string) string {
	if lang == LanguageIndonesian {
		return "Eksekusi transfer gagal: " + reason + " Silakan coba konfirmasi lagi."
	}
	return "Transfer execution failed: " + reason + " You may retry the confirmation."
}

// failureReason 将内部错误转成可以直接展示给用户的原因描述：
// 只取 message 与账本失败分类，不透出错误码与包装链。
func failureReason(err error) string {
	if err == nil {
		return ""
	}
	e, ok := xerrors.From(err)
	if !ok {
		return err.Error()
	}
	reason := e.Message()
	if kind := ledger.KindOf(err); kind != "" {
		reason += " (" + strings.ReplaceAll(string(kind), "_", " ") + ")"
	}
	if !strings.HasSuffix(reason, ".") {
		reason += "."
	}
	return reason
}
