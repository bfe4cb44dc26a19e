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

package command

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-klv/pkg/config"
	"jinr.ru/greenlab/go-klv/pkg/datachannel"
	"jinr.ru/greenlab/go-klv/pkg/srv/klv"
)

type ApiClient struct {
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return NewApiClientWithURL(cfg.ApiURL())
}

func NewApiClientWithURL(baseURL string) *ApiClient {
	return &ApiClient{
		ApiPrefix: fmt.Sprintf("%s/api", strings.TrimSuffix(baseURL, "/")),
	}
}

func (c *ApiClient) url(path string) string {
	return fmt.Sprintf("%s/%s", c.ApiPrefix, path)
}

func checkResponse(r *req.Resp) error {
	if r.Response().StatusCode != http.StatusOK {
		return ErrApi{Status: r.Response().Status, Message: strings.TrimSpace(r.String())}
	}
	return nil
}

// RecordsLast sends request to get the most recent record
func (c *ApiClient) RecordsLast() (*klv.Entry, error) {
	r, err := req.Get(c.url("records/last"))
	if err != nil {
		return nil, err
	}
	if err = checkResponse(r); err != nil {
		return nil, err
	}
	entry := &klv.Entry{}
	if err = r.ToJSON(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordsList sends request to get up to limit most recent records
func (c *ApiClient) RecordsList(limit int) ([]klv.Entry, error) {
	r, err := req.Get(c.url("records"), req.Param{"limit": limit})
	if err != nil {
		return nil, err
	}
	if err = checkResponse(r); err != nil {
		return nil, err
	}
	var entries []klv.Entry
	if err = r.ToJSON(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Sessions sends request to get the WebRTC sessions of the server
func (c *ApiClient) Sessions() ([]datachannel.SessionInfo, error) {
	r, err := req.Get(c.url("sessions"))
	if err != nil {
		return nil, err
	}
	if err = checkResponse(r); err != nil {
		return nil, err
	}
	var sessions []datachannel.SessionInfo
	if err = r.ToJSON(&sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Persist sends request to start writing records to a file in dirPath.
// It returns the name of the file created by the server.
func (c *ApiClient) Persist(dirPath, filePrefix string) (string, error) {
	persist := &klv.Persist{
		Dir:        dirPath,
		FilePrefix: filePrefix,
	}
	r, err := req.Post(c.url("persist"), req.BodyJSON(persist))
	if err != nil {
		return "", err
	}
	if err = checkResponse(r); err != nil {
		return "", err
	}
	result := &klv.PersistResult{}
	if err = r.ToJSON(result); err != nil {
		return "", err
	}
	return result.Filename, nil
}

// Flush sends request to stop writing records
func (c *ApiClient) Flush() error {
	r, err := req.Get(c.url("flush"))
	if err != nil {
		return err
	}
	return checkResponse(r)
}
