package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/cory-johannsen/storyweave/internal/story/arcsim"
)

type repl struct {
	w   *arcsim.Walker
	out io.Writer
}

func newREPL(w *arcsim.Walker, out io.Writer) *repl {
	return &repl{w: w, out: out}
}

// Run executes commands from in until "quit" or end of input. Command errors
// are reported to the output and do not stop the loop.
func (r *repl) Run(in io.Reader) error {
	r.show()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return nil
		}
		if err := r.exec(line); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
		r.show()
	}
	return scanner.Err()
}

func (r *repl) exec(line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "back":
		return r.w.GoBack()
	case "restart":
		r.w.Restart()
		return nil
	case "begin":
		if arg == "" {
			return errors.New("usage: begin <storylet>")
		}
		return r.w.Begin(strings.TrimSpace(arg))
	case "flags":
		flags := r.w.Flags()
		keys := make([]string, 0, len(flags))
		for k := range flags {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(r.out, "  %s=%t\n", k, flags[k])
		}
		return nil
	case "history":
		for _, step := range r.w.History() {
			if step.Kind == arcsim.StepChoice {
				fmt.Fprintf(r.out, "  -> [%s] %s\n", step.ChoiceID, step.ChoiceText)
			} else {
				fmt.Fprintf(r.out, "  %s\n", step.StoryletID)
			}
		}
		return nil
	default:
		return r.w.Choose(line)
	}
}

func (r *repl) show() {
	switch r.w.State() {
	case arcsim.Idle:
		fmt.Fprintln(r.out, "idle: begin <storylet> to start")
	case arcsim.Terminal:
		cur, _ := r.w.Current()
		fmt.Fprintf(r.out, "end of arc after %s (back or restart)\n", cur.ID)
	case arcsim.At:
		cur, _ := r.w.Current()
		fmt.Fprintf(r.out, "at %s: %s\n", cur.ID, cur.Name)
		for _, c := range cur.Choices {
			fmt.Fprintf(r.out, "  [%s] %s\n", c.ID, c.Text)
		}
	}
}
