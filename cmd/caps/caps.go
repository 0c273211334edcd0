/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package caps

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/config"
)

const (
	FileOptionName = "file"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caps",
		Short: "Inspect capability tables",
	}
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewCheckCommand())
	return cmd
}

// NewListCommand prints the models of the builtin and configured tables
func NewListCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supported models",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := capability.Load(cfg.Capabilities)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tFAMILY\tTYPE\tGRAY DPI\tCOLOR DPI")
			for _, name := range r.Models() {
				m, err := r.Model(name)
				if err != nil {
					return err
				}
				kind := "flatbed"
				if m.SheetFed {
					kind = "sheet-fed"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\n", m.Name, m.Family, kind,
					r.Resolutions(name, false), r.Resolutions(name, true))
			}
			return w.Flush()
		},
	}
	return cmd
}

// NewCheckCommand validates a user table against the builtin one and
// reports keys that shadow each other
func NewCheckCommand() *cobra.Command {
	var file string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a capability table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = cfg.Capabilities
			}
			r, err := capability.Load(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range r.Duplicates() {
				fmt.Fprintf(out, "Duplicate %s key %s at index %d is ignored\n", d.Table, d.Key, d.Index)
			}
			fmt.Fprintf(out, "%d models, %d duplicate keys\n", len(r.Models()), len(r.Duplicates()))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, FileOptionName, "", "Capability table, the configured one when empty")
	return cmd
}
