package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"GazetteScanner/internal/discovery"
	"GazetteScanner/internal/domain"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <YYYY-MM-DD> [sections]",
		Short: "Print the entries published on a day",
		Long: `Print the URL and storage key of every entry published on the given
day, ignoring the ledger. Sections default to all; they may be given as
"all", a comma separated list ("1,e,1a") or packed codes ("12e").`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := time.ParseInLocation("2006-01-02", args[0], discovery.Brasilia)
			if err != nil {
				return &domain.ConfigError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", args[0])}
			}
			raw := string(domain.SectionAll)
			if len(args) == 2 {
				raw = args[1]
			}
			sections, err := ParseSections(raw)
			if err != nil {
				return err
			}

			application, err := rootOpts.load(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			entries, err := application.List(cmd.Context(), day, sections)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.Section, e.URL, e.StorageKey)
			}
			return nil
		},
	}
}

// ParseSections reads "all", "1,2,e" or packed codes like "123e" and "11a".
func ParseSections(value string) ([]domain.Section, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return nil, &domain.ConfigError{Field: "sections", Reason: "is empty"}
	}

	var codes []string
	switch {
	case value == string(domain.SectionAll):
		codes = []string{value}
	case strings.Contains(value, ","):
		codes = strings.Split(value, ",")
	default:
		for i := 0; i < len(value); i++ {
			if value[i] == '1' && i+1 < len(value) && value[i+1] == 'a' {
				codes = append(codes, "1a")
				i++
				continue
			}
			codes = append(codes, value[i:i+1])
		}
	}

	list := make(domain.SectionList, 0, len(codes))
	for _, code := range codes {
		s, err := domain.ParseSection(code)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list.Expand(), nil
}
