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

package klv

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"jinr.ru/greenlab/go-klv/pkg/datachannel"
)

func readLines(t *testing.T, filename string) []string {
	t.Helper()
	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer file.Close()
	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func serve(h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApiRecords(t *testing.T) {
	s := newTestServer(t, newTestConfig(t))
	h := s.api.Handler()

	if rec := serve(h, "GET", "/api/records/last", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an empty archive, got %d", rec.Code)
	}

	for _, mission := range []string{"M1", "M2", "M3"} {
		data := testPacket(t, mission)
		s.Process(data, captureInfo(data))
	}

	rec := serve(h, "GET", "/api/records/last", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	last := &Entry{}
	if err := json.Unmarshal(rec.Body.Bytes(), last); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if last.Seq != 3 || !bytes.Contains(last.Doc, []byte(`"3":"M3"`)) {
		t.Errorf("Unexpected last record: %d %s", last.Seq, last.Doc)
	}

	rec = serve(h, "GET", "/api/records?limit=2", "")
	var entries []Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(entries) != 2 || entries[0].Seq != 2 || entries[1].Seq != 3 {
		t.Errorf("Unexpected entries: %s", rec.Body)
	}

	for _, limit := range []string{"abc", "0", "-1"} {
		if rec := serve(h, "GET", "/api/records?limit="+limit, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("limit %s: expected 400, got %d", limit, rec.Code)
		}
	}
}

func TestApiPersistFlush(t *testing.T) {
	s := newTestServer(t, newTestConfig(t))
	h := s.api.Handler()

	body, _ := json.Marshal(&Persist{Dir: t.TempDir(), FilePrefix: "test"})
	rec := serve(h, "POST", "/api/persist", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	result := &PersistResult{}
	if err := json.Unmarshal(rec.Body.Bytes(), result); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	data := testPacket(t, "M1")
	s.Process(data, captureInfo(data))

	if rec := serve(h, "GET", "/api/flush", ""); rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if rec := serve(h, "GET", "/api/flush", ""); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for a second flush, got %d", rec.Code)
	}
	if lines := readLines(t, result.Filename); len(lines) != 1 {
		t.Errorf("Expected 1 line in %s, got %d", result.Filename, len(lines))
	}

	if rec := serve(h, "POST", "/api/persist", "{"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed request, got %d", rec.Code)
	}
	body, _ = json.Marshal(&Persist{Dir: "/nonexistent/dir/for/records"})
	if rec := serve(h, "POST", "/api/persist", string(body)); rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for a missing directory, got %d", rec.Code)
	}
}

func TestApiSignaling(t *testing.T) {
	s := newTestServer(t, newTestConfig(t))
	h := s.api.Handler()

	rec := serve(h, "POST", "/offer", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	offer := &SessionDescription{}
	if err := json.Unmarshal(rec.Body.Bytes(), offer); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if offer.ID == "" || offer.Type != "offer" || !strings.HasPrefix(offer.SDP, "v=0") {
		t.Errorf("Unexpected offer: %+v", offer)
	}

	rec = serve(h, "GET", "/api/sessions", "")
	var sessions []datachannel.SessionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != offer.ID {
		t.Errorf("Unexpected sessions: %s", rec.Body)
	}

	tests := []struct {
		name     string
		body     string
		expected int
	}{
		{name: "malformed", body: "{", expected: http.StatusBadRequest},
		{name: "wrong type", body: `{"id":"x","sdp":"v=0","type":"offer"}`, expected: http.StatusBadRequest},
		{name: "empty sdp", body: `{"id":"x","type":"answer"}`, expected: http.StatusBadRequest},
		{name: "unknown session", body: `{"id":"x","sdp":"v=0","type":"answer"}`, expected: http.StatusNotFound},
		{name: "broken sdp", body: `{"sdp":"garbage","type":"answer"}`, expected: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := serve(h, "POST", "/answer", tt.body); rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d: %s", tt.expected, rec.Code, rec.Body)
			}
		})
	}
}

func TestApiStatic(t *testing.T) {
	s := newTestServer(t, newTestConfig(t))
	h := s.api.Handler()

	data := testPacket(t, "M1")
	s.Process(data, captureInfo(data))

	tests := []struct {
		target   string
		contains string
	}{
		{target: "/", contains: "RTCPeerConnection"},
		{target: "/swagger.json", contains: "go-klv API"},
		{target: "/docs", contains: "redoc"},
		{target: "/metrics", contains: "klv_packets_decoded_total 1"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := serve(h, "GET", tt.target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("Expected %q in response", tt.contains)
			}
		})
	}
}

func TestApiCORS(t *testing.T) {
	s := newTestServer(t, newTestConfig(t))
	req := httptest.NewRequest("GET", "/api/sessions", nil)
	req.Header.Set("Origin", "http://viewer.example")
	rec := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, req)
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin *, got %q", origin)
	}
}
