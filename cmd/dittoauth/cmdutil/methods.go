package cmdutil

import (
	"context"
	"strconv"

	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/auth/methods"
	"github.com/marmos91/dittoauth/pkg/config"
)

// MethodStatus is one row of the methods report.
type MethodStatus struct {
	Position   int    `json:"position" yaml:"position"`
	Name       string `json:"name" yaml:"name"`
	Standalone bool   `json:"standalone" yaml:"standalone"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Flags      string `json:"flags" yaml:"flags"`
	Init       string `json:"init,omitempty" yaml:"init,omitempty"`
}

// MethodReport describes the chain that would be used for a user.
type MethodReport struct {
	User    string         `json:"user" yaml:"user"`
	Methods []MethodStatus `json:"methods" yaml:"methods"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Headers implements output.TableRenderer.
func (r *MethodReport) Headers() []string {
	return []string{"#", "Method", "Standalone", "Enabled", "Init", "Flags"}
}

// Rows implements output.TableRenderer.
func (r *MethodReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Methods))
	for _, m := range r.Methods {
		rows = append(rows, []string{
			strconv.Itoa(m.Position), m.Name, yesNo(m.Standalone), yesNo(m.Enabled), m.Init, m.Flags,
		})
	}
	return rows
}

// DescribeMethods builds the chain for user without prompting and reports
// the state of every configured method. Build errors are reported in the
// result rather than returned; only configuration errors are returned.
func DescribeMethods(ctx context.Context, cfg *config.AuthConfig, user string) (*MethodReport, error) {
	descs, err := methods.Build(cfg, user)
	if err != nil {
		return nil, err
	}

	report := &MethodReport{User: user}
	chain, err := auth.Build(ctx, descs, true)
	if err != nil {
		report.Error = err.Error()
	}

	for i, d := range descs {
		st := MethodStatus{
			Position:   i + 1,
			Name:       d.Name(),
			Standalone: d.Standalone(),
			Enabled:    err == nil && d.Enabled(),
			Flags:      d.Flags().String(),
		}
		if r, ran := d.LastResult(); ran {
			st.Init = r.String()
		}
		report.Methods = append(report.Methods, st)
	}

	if chain != nil {
		chain.Cleanup(ctx, true)
	}
	return report, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
