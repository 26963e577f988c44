package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var replExamples = []string{
	"Which branch has the highest gold loan?",
	"Top 3 branches by UPI transactions in Q1 2024",
	"Compare gold loan and home loan by branch",
	"Which branches have UPI growing faster than card?",
}

func newInteractiveCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"repl"},
		Short:   "Ask questions one per line until exit",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := s.openBackend(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer backend.Close() //nolint:errcheck

			in := cmd.InOrStdin()
			return runREPL(cmd, backend, in, isTerminal(in))
		},
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runREPL answers each input line. Failed answers are printed and the loop
// continues; only a transport or backend error ends it.
func runREPL(cmd *cobra.Command, backend Backend, in io.Reader, prompt bool) error {
	out := cmd.OutOrStdout()
	if prompt {
		_, _ = fmt.Fprintln(out, "Ask a question about loans, payments or customers. Type 'help' for examples, 'exit' to quit.")
	}

	sc := bufio.NewScanner(in)
	for {
		if prompt {
			_, _ = fmt.Fprint(out, "> ")
		}
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit", "q":
			return nil
		case "help":
			for _, ex := range replExamples {
				_, _ = fmt.Fprintf(out, "  %s\n", ex)
			}
			continue
		}

		v, err := backend.Query(cmd.Context(), line)
		if err != nil {
			return err
		}
		if getOutputFormat(cmd) == "json" {
			if err := PrintJSON(out, v); err != nil {
				return err
			}
			continue
		}
		if err := printQueryView(out, v); err != nil {
			_, _ = fmt.Fprintf(out, "%v\n", err)
		}
		_, _ = fmt.Fprintln(out)
	}
}
