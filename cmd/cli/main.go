package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"agentwardan/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("agentwardan cli 0.1.0")
	case "health":
		runHealth()
	case "config":
		runConfig()
	case "server":
		if len(args) > 0 && args[0] == "start" {
			runServerStart()
		} else {
			fmt.Fprintf(os.Stderr, "Usage: agentwardan server start\n")
			os.Exit(1)
		}
	case "query":
		session, rest := sessionFlag(args)
		if len(rest) == 0 {
			fmt.Fprintf(os.Stderr, "Usage: agentwardan query [--session id] <text>\n")
			os.Exit(1)
		}
		if err := runQuery(session, strings.Join(rest, " "), os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "查询失败: %v\n", err)
			os.Exit(1)
		}
	case "chat":
		session, rest := sessionFlag(args)
		if session == "" && len(rest) > 0 {
			session = rest[0]
		}
		runChat(session, os.Stdin, os.Stdout, os.Stderr)
	case "transcript":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: agentwardan transcript <session_id>\n")
			os.Exit(1)
		}
		runTranscript(args[0])
	default:
		printUsage(os.Stdout)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: agentwardan <command> [args]")
	fmt.Fprintln(w, "  version                       - 显示版本")
	fmt.Fprintln(w, "  health                        - 检查 API 服务")
	fmt.Fprintln(w, "  config                        - 显示配置概要")
	fmt.Fprintln(w, "  server start                  - 启动 API 服务（go run ./cmd/api）")
	fmt.Fprintln(w, "  query [--session id] <text>   - 发送单轮请求并打印 envelope")
	fmt.Fprintln(w, "  chat [session]                - 交互式对话（exit/quit 退出）")
	fmt.Fprintln(w, "  transcript <session_id>       - 输出会话记录")
}

// sessionFlag pulls "--session id" (or "--session=id") out of args.
func sessionFlag(args []string) (string, []string) {
	session := ""
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--session" && i+1 < len(args):
			session = args[i+1]
			i++
		case strings.HasPrefix(a, "--session="):
			session = strings.TrimPrefix(a, "--session=")
		default:
			rest = append(rest, a)
		}
	}
	return session, rest
}

func runHealth() {
	out, err := getHealth()
	if err != nil {
		fmt.Fprintf(os.Stderr, "健康检查失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(out))
}

func runConfig() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("api.port=%d\n", cfg.API.Port)
	fmt.Printf("api.host=%s\n", cfg.API.Host)
	fmt.Printf("backend.base_url=%s\n", cfg.Backend.BaseURL)
	fmt.Printf("model.defaults.llm=%s\n", cfg.Model.Defaults.LLM)
	fmt.Printf("agent.tool_loop=%s\n", cfg.Agent.ToolLoop)
	fmt.Printf("session.type=%s\n", cfg.Session.Type)
	fmt.Printf("knowledge.type=%s\n", cfg.Knowledge.Type)
}

func runServerStart() {
	c := exec.Command("go", "run", "./cmd/api")
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Dir = "."
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server start: %v\n", err)
		os.Exit(1)
	}
}

func runQuery(session, query string, out io.Writer) error {
	env, err := postQuery(session, query)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, prettyEnvelope(env))
	return nil
}

func runChat(session string, in io.Reader, out, errOut io.Writer) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		msg := strings.TrimSpace(line)
		if msg == "exit" || msg == "quit" {
			return
		}
		if msg != "" {
			if qerr := runQuery(session, msg, out); qerr != nil {
				fmt.Fprintf(errOut, "发送失败: %v\n", qerr)
			}
		}
		if err != nil {
			return
		}
	}
}

func runTranscript(session string) {
	out, err := getTranscript(session)
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取会话失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(out))
}
