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

package records

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-klv/pkg/command"
	"jinr.ru/greenlab/go-klv/pkg/config"
	"jinr.ru/greenlab/go-klv/pkg/srv/klv"
)

const (
	LimitOptionName = "limit"
)

// NewCommand creates the records command group querying a running server
func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Query records archived by a running server",
	}
	cmd.AddCommand(NewLastCommand(cfg))
	cmd.AddCommand(NewListCommand(cfg))
	cmd.AddCommand(NewSessionsCommand(cfg))
	return cmd
}

func printEntry(out io.Writer, entry klv.Entry) {
	fmt.Fprintf(out, "%d\t%s\n", entry.Seq, entry.Doc)
}

func NewLastCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "last",
		Short: "Print the most recent record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := command.NewApiClient(cfg).RecordsLast()
			if err != nil {
				return err
			}
			printEntry(cmd.OutOrStdout(), *entry)
			return nil
		},
	}
	return cmd
}

func NewListCommand(cfg *config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the most recent records in ascending order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := command.NewApiClient(cfg).RecordsList(limit)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				printEntry(cmd.OutOrStdout(), entry)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, LimitOptionName, klv.DefaultListLimit, "Number of records")
	return cmd
}

func NewSessionsCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Print WebRTC sessions of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := command.NewApiClient(cfg).Sessions()
			if err != nil {
				return err
			}
			for _, s := range sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\topen=%t\n",
					s.ID, s.Created.Format("2006-01-02T15:04:05Z07:00"), s.State, s.ChannelOpen)
			}
			return nil
		},
	}
	return cmd
}
