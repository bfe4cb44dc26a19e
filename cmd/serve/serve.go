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

package serve

import (
	"github.com/spf13/cobra"

	pkgcmd "jinr.ru/greenlab/go-klv/pkg/cmd"
	"jinr.ru/greenlab/go-klv/pkg/command"
	"jinr.ru/greenlab/go-klv/pkg/config"
	"jinr.ru/greenlab/go-klv/pkg/record"
)

const (
	AddressOptionName    = "address"
	PortOptionName       = "port"
	ApiPortOptionName    = "api-port"
	EncodingOptionName   = "encoding"
	DictionaryOptionName = "dictionary"
	DBPathOptionName     = "db"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var address, encoding, dictionary, dbPath string
	var port, apiPort int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start KLV stream server",
		Long: `Receive KLV buffers over UDP and publish decoded records to WebRTC data channels.
The stream can be fed with e.g.
# ffmpeg -i input.ts -map 0:d -c copy -f data udp://127.0.0.1:5000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if address != "" {
				cfg.Stream.Address = address
			}
			if pkgcmd.Changed(flags, PortOptionName) {
				cfg.Stream.Port = port
			}
			if pkgcmd.Changed(flags, ApiPortOptionName) {
				cfg.Api.Port = apiPort
			}
			if pkgcmd.Changed(flags, EncodingOptionName) {
				cfg.Output.Encoding = encoding
			}
			if pkgcmd.Changed(flags, DictionaryOptionName) {
				cfg.Output.Dictionary = dictionary
			}
			if dbPath != "" {
				cfg.Archive.DBPath = dbPath
			}
			return command.StartServer(cfg)
		},
	}
	encodingValue := pkgcmd.NewEnumValue(&encoding, record.EncodingJSON, record.EncodingJSON, record.EncodingCBOR)
	dictionaryValue := pkgcmd.NewEnumValue(&dictionary, config.DictionaryST0601, config.DictionaryST0601, config.DictionaryNone)
	cmd.Flags().StringVar(&address, AddressOptionName, "", "Address to bind. E.g. 0.0.0.0")
	cmd.Flags().IntVar(&port, PortOptionName, config.DefaultStreamPort, "UDP port receiving the KLV stream")
	cmd.Flags().IntVar(&apiPort, ApiPortOptionName, config.DefaultApiPort, "HTTP port for signaling and API")
	cmd.Flags().Var(encodingValue, EncodingOptionName, "Encoding of published records. "+encodingValue.Help())
	cmd.Flags().Var(dictionaryValue, DictionaryOptionName, "Dictionary used to interpret tags. "+dictionaryValue.Help())
	cmd.Flags().StringVar(&dbPath, DBPathOptionName, "", "Record archive file")

	return cmd
}
