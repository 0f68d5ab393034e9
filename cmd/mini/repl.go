package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/log"
	"github.com/peterh/liner"

	"github.com/thomasrohde/mini/pkg/evaluator"
	"github.com/thomasrohde/mini/pkg/help"
	"github.com/thomasrohde/mini/pkg/parser"
	"github.com/thomasrohde/mini/pkg/runtime"
)

const replContPrompt = "...   "

func cmdRepl(args []string) int {
	cf, _ := parseCommon(args)
	cfg, exitCode := setup(&cf)
	if exitCode != 0 {
		return exitCode
	}

	fmt.Printf("mini %s (:help for commands, :quit to exit)\n", help.Version)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := cfg.HistoryPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			if _, err := ln.ReadHistory(f); err != nil {
				log.Errf("repl: reading history %s: %v", histPath, err)
			}
			_ = f.Close()
		}
		defer writeHistory(ln, histPath)
	}

	rt := runtime.New(runtime.WithStdout(os.Stdout), runtime.WithConfig(cfg), runtime.WithRunID("repl"))
	sess := rt.NewSession("<repl>")

	for {
		code, ok := readByParseProbe(ln, cfg.Prompt(), replContPrompt)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if quit := handleReplCommand(sess, trimmed); quit {
				return 0
			}
			continue
		}

		res, err := sess.Eval(code)
		if err != nil {
			reportError(err, true)
			continue
		}
		if res == nil {
			continue
		}
		if _, none := res.Value.(evaluator.None); !none && res.Value != nil {
			fmt.Printf("=> %s\n", evaluator.FormatValue(res.Value))
		}
	}
	return 0
}

func handleReplCommand(sess *runtime.Session, cmd string) (quit bool) {
	switch strings.ToLower(cmd) {
	case ":quit", ":q", ":exit":
		return true
	case ":names":
		fmt.Println(strings.Join(sess.Names(), " "))
	case ":help":
		fmt.Println(":names  list global bindings")
		fmt.Println(":quit   leave the repl")
	default:
		fmt.Printf("unknown command %s. Type :help for a list.\n", cmd)
	}
	return false
}

// readByParseProbe reads lines until they form a program the parser does not
// consider incomplete. ok is false at end of input.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl-C discards the pending input.
			return "", true
		}
		if err != nil {
			log.Errf("repl: %v", err)
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, perr := parser.Parse(src, "<repl>"); perr != nil && parser.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}

func writeHistory(ln *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Errf("repl: creating history dir: %v", err)
		return
	}
	f, err := os.Create(path)
	if err != nil {
		log.Errf("repl: writing history %s: %v", path, err)
		return
	}
	defer f.Close()
	if _, err := ln.WriteHistory(f); err != nil {
		log.Errf("repl: writing history %s: %v", path, err)
	}
}
