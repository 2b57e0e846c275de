package cmds

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := LoadSettings(viper.GetViper())
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(settings.Redacted()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// Redacted returns a copy that is safe to print.
func (s *Settings) Redacted() *Settings {
	ret := s.Clone()
	if len(ret.Completion.APIKey) > 8 {
		ret.Completion.APIKey = ret.Completion.APIKey[:4] + "..." + ret.Completion.APIKey[len(ret.Completion.APIKey)-4:]
	} else if ret.Completion.APIKey != "" {
		ret.Completion.APIKey = "***"
	}
	return ret
}
