package cmdbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	xerrors "TokenPilot-Chain/internal/errors"
	"TokenPilot-Chain/internal/planner"
)

// Client 通过调用外部命令实现规划，用于接入本地脚本形式的规划器。
// 会话消息与工具清单以 JSON 写入 stdin，完成结果从 stdout 读取。
type Client struct {
	execPath   string
	scriptPath string
	workingDir string
}

// NewClient 创建命令桥接客户端。
func NewClient(execPath, scriptPath, workingDir string) (*Client, error) {
	if scriptPath == "" {
		return nil, fmt.Errorf("未指定规划器脚本路径")
	}
	if execPath == "" {
		execPath = "python3"
	}
	return &Client{
		execPath:   execPath,
		scriptPath: scriptPath,
		workingDir: workingDir,
	}, nil
}

// Complete 调用外部脚本并解析输出。
func (c *Client) Complete(ctx context.Context, messages []planner.Message, tools []planner.Tool) (*planner.Completion, error) {
	payload := map[string]any{
		"messages": messages,
		"tools":    tools,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodePlannerFailure, err, "序列化规划请求失败")
	}

	command := exec.CommandContext(ctx, c.execPath, c.scriptPath)
	if c.workingDir != "" {
		command.Dir = c.workingDir
	}
	command.Stdin = bytes.NewReader(encoded)

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodePlannerFailure, err,
			fmt.Sprintf("执行规划器脚本失败, stderr=%s", strings.TrimSpace(stderr.String())))
	}

	var completion planner.Completion
	if err := json.Unmarshal(stdout.Bytes(), &completion); err != nil {
		return nil, xerrors.Wrap(xerrors.CodePlannerFailure, err, "解析规划器输出失败")
	}
	return &completion, nil
}

// ResolveScriptPath 根据工作目录推导脚本绝对路径。
func ResolveScriptPath(baseDir, script string) string {
	if script == "" {
		return ""
	}
	if filepath.IsAbs(script) {
		return script
	}
	if baseDir == "" {
		return script
	}
	return filepath.Join(baseDir, script)
}

var _ planner.Client = (*Client)(nil)
