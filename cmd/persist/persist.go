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

package persist

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-klv/pkg/command"
	"jinr.ru/greenlab/go-klv/pkg/config"
)

const (
	FilePrefixOptionName = "prefix"
)

func NewPersistCommand(cfg *config.Config) *cobra.Command {
	var filePrefix string
	cmd := &cobra.Command{
		Use:   "persist DIR",
		Short: "Start writing records of a running server to a file in DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			filename, err := command.NewApiClient(cfg).Persist(dir, filePrefix)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), filename)
			return nil
		},
	}
	cmd.Flags().StringVar(&filePrefix, FilePrefixOptionName, "klv", "Records file prefix")
	return cmd
}

func NewFlushCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Stop writing records and close the file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.NewApiClient(cfg).Flush()
		},
	}
	return cmd
}
