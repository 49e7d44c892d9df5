// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jeranaias/jeeves/internal/ai"
	"github.com/jeranaias/jeeves/internal/modelwatch"
	"github.com/jeranaias/jeeves/internal/router"
	"github.com/jeranaias/jeeves/internal/tasks"
)

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// =============================================================================
// RUN COMMAND
// =============================================================================

// RunArgs holds the arguments of the run command.
type RunArgs struct {
	Operation ai.Operation

	// Watch reloads the on-device model when its file is replaced
	Watch bool

	// Prompt prints "> " before each line
	Prompt bool
}

// HandleRun answers one request per input line until EOF, ":quit" or ctx
// ends. Lines starting with ":" are commands:
//
//	:stats        print routing counters
//	:mode <name>  switch routing mode
//	:op <name>    switch operation for following lines
//	:quit         stop
func HandleRun(ctx context.Context, in io.Reader, out Output, s *Stack, w *tasks.Worker, args RunArgs) error {
	if args.Watch {
		stop, err := watchModel(s)
		if err != nil {
			return err
		}
		defer stop()
	}

	op := args.Operation
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for {
		if args.Prompt {
			out.Printf("> ")
		}
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			quit, err := runCommand(out, s, line, &op)
			if err != nil {
				out.Printf("%s\n", ErrorStyle.Render(err.Error()))
			}
			if quit {
				break
			}
			continue
		}

		err := HandleClassify(ctx, out, s, w, ClassifyArgs{Operation: op, Input: line})
		if err != nil && !errors.Is(err, tasks.ErrWaitTimeout) {
			return err
		}
		if err != nil {
			out.Printf("%s\n", WarningStyle.Render(err.Error()))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	out.Printf("%s\n", DimStyle.Render(s.Router.Stats().String()))
	return nil
}

func runCommand(out Output, s *Stack, line string, op *ai.Operation) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true, nil
	case ":stats":
		st := s.Router.Stats()
		out.Printf("%s\n", st.String())
		out.Printf("escalation rate %.1f%%\n", st.EscalationRate()*100)
		return false, nil
	case ":mode":
		if len(fields) < 2 {
			out.Printf("mode %s\n", s.Router.Mode())
			return false, nil
		}
		m, err := router.ParseMode(fields[1])
		if err != nil {
			return false, err
		}
		if err := s.Router.SetMode(m); err != nil {
			return false, err
		}
		out.Printf("mode %s\n", m)
		return false, nil
	case ":op":
		if len(fields) < 2 {
			out.Printf("operation %s\n", *op)
			return false, nil
		}
		parsed, err := ai.ParseOperation(fields[1])
		if err != nil {
			return false, err
		}
		*op = parsed
		out.Printf("operation %s\n", parsed)
		return false, nil
	}
	return false, fmt.Errorf("unknown command %s", fields[0])
}

// watchModel reloads the on-device model whenever the configured file is
// created or replaced. It returns a function that stops watching.
func watchModel(s *Stack) (func(), error) {
	path := s.Config.WatchPath()
	if path == "" {
		return nil, modelwatch.ErrNoModelPath
	}
	mw, err := modelwatch.New(path, modelwatch.DefaultDebounce, func(p string) {
		res := s.OnDevice.LoadModel(p)
		if !res.Success {
			log.Printf("MODELWATCH | reload path=%s err=%v", p, res.Err)
			return
		}
		log.Printf("MODELWATCH | reloaded path=%s load_ms=%d stub=%v", p, res.LoadTime.Milliseconds(), res.IsStub)
	})
	if err != nil {
		return nil, err
	}
	if err := mw.Watch(); err != nil {
		mw.Close()
		return nil, fmt.Errorf("watch %s: %w", mw.Dir(), err)
	}
	return func() { mw.Close() }, nil
}
