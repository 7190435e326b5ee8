package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/promptlib"
	"github.com/spf13/cobra"
)

var (
	renderWorkspace   string
	renderLibrary     string
	renderSet         []string
	renderInteractive bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Validate answers and render a library prompt",
	Long: `Render a prompt library available to a workspace.

Question defaults are applied first, then --set answers. With --interactive
every visible question is asked in order; questions appear and disappear as
earlier answers change. The command exits with status 2 when required
answers are missing.

Examples:
  promptlib render --workspace research --library "Paper summary" --set title=Attention
  promptlib render --workspace research --library 3 --interactive`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderWorkspace, "workspace", "w", "", "Workspace slug")
	renderCmd.Flags().StringVarP(&renderLibrary, "library", "l", "", "Library name or ID")
	renderCmd.Flags().StringArrayVar(&renderSet, "set", nil, "Answer as variable=value (repeatable)")
	renderCmd.Flags().BoolVarP(&renderInteractive, "interactive", "i", false, "Prompt for each visible question")
	_ = renderCmd.MarkFlagRequired("workspace")
	_ = renderCmd.MarkFlagRequired("library")
}

// parseSet splits variable=value pairs.
func parseSet(pairs []string) (promptlib.Answers, error) {
	answers := promptlib.Answers{}
	for _, p := range pairs {
		variable, value, ok := strings.Cut(p, "=")
		variable = strings.TrimSpace(variable)
		if !ok || variable == "" {
			return nil, fmt.Errorf("invalid --set %q: expected variable=value", p)
		}
		answers[variable] = value
	}
	return answers, nil
}

// findLibrary matches ref against library IDs, then exact names, then
// case-insensitive names.
func findLibrary(libs []models.PromptLibrary, ref string) (*models.PromptLibrary, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		for i := range libs {
			if libs[i].ID == uint(id) {
				return &libs[i], nil
			}
		}
	}
	for i := range libs {
		if libs[i].Name == ref {
			return &libs[i], nil
		}
	}
	for i := range libs {
		if strings.EqualFold(libs[i].Name, ref) {
			return &libs[i], nil
		}
	}
	return nil, fmt.Errorf("library %q is not available to this workspace", ref)
}

func runRender(cmd *cobra.Command, args []string) error {
	set, err := parseSet(renderSet)
	if err != nil {
		return err
	}

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	libs, err := app.Services.Libraries.ListAccessible(ctx, renderWorkspace)
	if err != nil {
		return fmt.Errorf("workspace %q: %w", renderWorkspace, err)
	}
	lib, err := findLibrary(libs, renderLibrary)
	if err != nil {
		return err
	}

	session := promptlib.NewSession(promptlib.FormFromModel(*lib))
	for variable, value := range set {
		session.Set(variable, value)
	}
	if renderInteractive {
		if err := ask(session, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	res, err := app.Services.Libraries.ValidateAndRender(ctx, renderWorkspace, lib.ID, session.Answers())
	if err != nil {
		return err
	}
	if !res.OK {
		return &exitError{code: 2, msg: "missing answers: " + strings.Join(res.Missing, ", ")}
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Prompt)
	return nil
}

// ask walks the visible questions in order, re-evaluating visibility after
// each answer. A blank reply keeps the current answer.
func ask(session *promptlib.Session, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	asked := map[string]bool{}
	for {
		q := nextQuestion(session, asked)
		if q == nil {
			return nil
		}
		asked[q.Variable] = true

		fmt.Fprint(out, questionPrompt(*q, session.Answers()[q.Variable]))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading answer: %w", err)
		}
		if reply := strings.TrimSpace(line); reply != "" {
			session.Set(q.Variable, replyValue(q.Type, reply))
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
	}
}

func nextQuestion(session *promptlib.Session, asked map[string]bool) *promptlib.Question {
	for _, q := range session.Visible() {
		if !asked[q.Variable] {
			return &q
		}
	}
	return nil
}

func questionPrompt(q promptlib.Question, current string) string {
	var b strings.Builder
	b.WriteString(q.Label)
	if q.Required {
		b.WriteString(" *")
	}
	switch {
	case q.Type == promptlib.FieldCheckbox:
		b.WriteString(" (y/n)")
	case q.Type.UsesOptions() && len(q.Options) > 0:
		fmt.Fprintf(&b, " [%s]", strings.Join(q.Options, ", "))
	case q.Placeholder != "":
		fmt.Fprintf(&b, " (%s)", q.Placeholder)
	}
	if current != "" {
		fmt.Fprintf(&b, " {%s}", current)
	}
	b.WriteString(": ")
	return b.String()
}

// replyValue converts an interactive reply to its wire form.
func replyValue(t promptlib.FieldType, reply string) string {
	if t != promptlib.FieldCheckbox {
		return reply
	}
	switch strings.ToLower(reply) {
	case "y", "yes", "true", "1":
		return "true"
	default:
		return "false"
	}
}
