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

package decode

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	pkgcmd "jinr.ru/greenlab/go-klv/pkg/cmd"
	"jinr.ru/greenlab/go-klv/pkg/config"
	"jinr.ru/greenlab/go-klv/pkg/layers"
	"jinr.ru/greenlab/go-klv/pkg/log"
	"jinr.ru/greenlab/go-klv/pkg/misb"
	"jinr.ru/greenlab/go-klv/pkg/record"
	"jinr.ru/greenlab/go-klv/pkg/srv/klv"
)

const (
	OutputOptionName     = "output"
	RawOptionName        = "raw"
	DictionaryOptionName = "dictionary"
	VerifyOptionName     = "verify"

	OutputJSON = "json"
	OutputYAML = "yaml"
)

const decodeExample = `
Decode a file with KLV packets
# go-klv decode metadata.klv

Extract the data stream from a video and decode it
# ffmpeg -i input.ts -map 0:d -c copy -f data - | go-klv decode - --output yaml
`

// hexInterpreter keeps every tag as a hex string
var hexInterpreter = record.InterpreterFunc(func(tag layers.Tag, raw []byte) (any, bool) {
	return hex.EncodeToString(raw), true
})

func NewCommand(cfg *config.Config) *cobra.Command {
	var output, dictionary string
	var raw, verify bool
	cmd := &cobra.Command{
		Use:     "decode FILE",
		Short:   "Decode KLV packets from a file or stdin (-)",
		Example: decodeExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if pkgcmd.Changed(cmd.Flags(), DictionaryOptionName) {
				cfg.Output.Dictionary = dictionary
			}

			var in record.Interpreter = hexInterpreter
			if !raw {
				if in, err = klv.NewInterpreter(cfg.Output.Dictionary); err != nil {
					return err
				}
			}
			if verify {
				verifyChecksums(cmd.ErrOrStderr(), data)
			}
			return Print(cmd.OutOrStdout(), klv.Decode(data, in), output)
		},
	}
	outputValue := pkgcmd.NewEnumValue(&output, OutputJSON, OutputJSON, OutputYAML)
	dictionaryValue := pkgcmd.NewEnumValue(&dictionary, config.DictionaryST0601, config.DictionaryST0601, config.DictionaryNone)
	cmd.Flags().Var(outputValue, OutputOptionName, "Output format. "+outputValue.Help())
	cmd.Flags().Var(dictionaryValue, DictionaryOptionName, "Dictionary used to interpret tags. "+dictionaryValue.Help())
	cmd.Flags().BoolVar(&raw, RawOptionName, false, "Print raw tag values as hex")
	cmd.Flags().BoolVar(&verify, VerifyOptionName, false, "Report packets with a wrong ST 0601 checksum")

	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

// Print writes one document per record
func Print(out io.Writer, records []*record.Record, output string) error {
	enc := record.JSONEncoder{}
	for i, r := range records {
		doc, err := enc.Encode(r)
		if err != nil {
			log.Warning("Skip packet %d: %s", i, err)
			continue
		}
		if output == OutputYAML {
			if doc, err = yaml.JSONToYAML(doc); err != nil {
				return err
			}
			fmt.Fprintln(out, "---")
			_, err = out.Write(doc)
		} else {
			_, err = fmt.Fprintln(out, string(doc))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func verifyChecksums(out io.Writer, data []byte) {
	l := &layers.KLVLayer{}
	offset, index := 0, 0
	for {
		next, ok := l.DecodePacket(offset, data)
		if !ok {
			return
		}
		if !misb.VerifyChecksum(data[offset:next]) {
			fmt.Fprintf(out, "packet %d: wrong or missing checksum\n", index)
		}
		offset, index = next, index+1
	}
}
