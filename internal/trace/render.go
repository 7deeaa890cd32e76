package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/saleoracle/internal/command"
	"github.com/roach88/saleoracle/internal/oracle"
)

// Render writes one line per step: index, outcome, command and, for model
// rejections, the reasons.
//
//	002 rejected buyTokens(from=acct1, value=60) [max_cumulative_exceeded]
func Render(w io.Writer, steps []oracle.StepRecord) error {
	for _, s := range steps {
		line := fmt.Sprintf("%03d %s %s", s.Index, s.Outcome, s.Command)
		if len(s.Reasons) > 0 {
			line += " [" + strings.Join(command.Strings(s.Reasons), " ") + "]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderString is Render into a string.
func RenderString(steps []oracle.StepRecord) string {
	var sb strings.Builder
	_ = Render(&sb, steps)
	return sb.String()
}
