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
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"jinr.ru/greenlab/go-klv/pkg/config"
	"jinr.ru/greenlab/go-klv/pkg/datachannel"
	"jinr.ru/greenlab/go-klv/pkg/layers"
	"jinr.ru/greenlab/go-klv/pkg/log"
	"jinr.ru/greenlab/go-klv/pkg/metrics"
	"jinr.ru/greenlab/go-klv/pkg/record"
	"jinr.ru/greenlab/go-klv/pkg/srv"
)

const (
	InChSize = 100
)

// Server receives KLV buffers over UDP, turns every packet into a record
// and fans records out to data channels, the archive and the persist file
type Server struct {
	srv.Server
	api         *ApiServer
	Hub         *datachannel.Hub
	Archive     *Archive
	Metrics     *metrics.Metrics
	Registry    *prometheus.Registry
	interpreter record.Interpreter
	encoder     record.Encoder
	docEncoder  record.JSONEncoder
	seq         atomic.Uint64

	writerMu sync.Mutex
	writer   *Writer
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info("Initializing KLV stream server with address: %s", cfg.StreamAddr())

	uaddr, err := net.ResolveUDPAddr("udp", cfg.StreamAddr())
	if err != nil {
		return nil, err
	}

	interpreter, err := NewInterpreter(cfg.Output.Dictionary)
	if err != nil {
		return nil, err
	}
	encoder, err := record.NewEncoder(cfg.Output.Encoding)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	hub, err := datachannel.NewHub(datachannel.HubConfig{
		ICEServers:   iceServers(cfg.WebRTC.ICEServers),
		ChannelLabel: cfg.WebRTC.ChannelLabel,
		Ordered:      cfg.WebRTC.Ordered,
		Binary:       cfg.Output.Encoding == record.EncodingCBOR,
		QueueSize:    InChSize,
		Metrics:      m,
	})
	if err != nil {
		return nil, err
	}

	archive, err := OpenArchive(cfg.Archive.DBPath, cfg.Archive.Retention)
	if err != nil {
		hub.Close()
		return nil, fmt.Errorf("opening archive %s: %w", cfg.Archive.DBPath, err)
	}

	s := &Server{
		Server: srv.Server{
			Context: ctx,
			Config:  cfg,
			UDPAddr: uaddr,
			ChIn:    make(chan srv.InPacket, InChSize),
		},
		Hub:         hub,
		Archive:     archive,
		Metrics:     m,
		Registry:    registry,
		interpreter: interpreter,
		encoder:     encoder,
	}
	s.seq.Store(archive.LastSeq())

	apiServer, err := NewApiServer(ctx, cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.api = apiServer

	return s, nil
}

func iceServers(servers []config.ICEServer) []webrtc.ICEServer {
	result := make([]webrtc.ICEServer, 0, len(servers))
	for _, server := range servers {
		result = append(result, webrtc.ICEServer{
			URLs:       server.URLs,
			Username:   server.Username,
			Credential: server.Credential,
		})
	}
	return result
}

// Run serves until the context is done or one of the listeners fails
func (s *Server) Run() error {
	conn, err := net.ListenUDP("udp", s.UDPAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer s.Close()

	errChan := make(chan error, 3)

	// Read buffers from wire and put them to input queue
	go func() {
		buffer := make([]byte, s.Config.Stream.BufferSize)
		for {
			length, addr, readErr := conn.ReadFromUDP(buffer)
			if readErr != nil {
				errChan <- readErr
				return
			}
			log.Debug("Received %d bytes from %s", length, addr)
			captureInfo := gopacket.CaptureInfo{
				Length:        length,
				CaptureLength: length,
				Timestamp:     time.Now(),
				AncillaryData: []interface{}{addr},
			}
			packet := srv.InPacket{CaptureInfo: captureInfo, Data: make([]byte, length)}
			copy(packet.Data, buffer[:length])
			select {
			case s.ChIn <- packet:
			case <-s.Context.Done():
				return
			}
		}
	}()

	// Decode buffers from input queue
	go func() {
		source := gopacket.NewPacketSource(s, layers.KLVLayerType)
		source.NoCopy = true
		for packet := range source.Packets() {
			s.handlePacket(packet)
		}
	}()

	go func() {
		if hubErr := s.Hub.Run(s.Context); hubErr != nil && !errors.Is(hubErr, context.Canceled) {
			errChan <- hubErr
		}
	}()

	go func() {
		errChan <- s.api.Run()
	}()

	select {
	case <-s.Context.Done():
		return nil
	case err = <-errChan:
		return err
	}
}

// Process runs one buffer through the pipeline and returns its records
func (s *Server) Process(data []byte, ci gopacket.CaptureInfo) []*record.Record {
	return s.handlePacket(NewPacket(data, ci))
}

func (s *Server) handlePacket(packet gopacket.Packet) []*record.Record {
	meta := packet.Metadata()
	s.Metrics.RecordBuffer(len(packet.Data()), meta.Truncated)
	if log.DebugEnabled() {
		if addr, err := srv.GetAddrPort(packet); err == nil {
			log.Debug("Decoding buffer from %s: \n%s", addr, hex.Dump(packet.Data()))
		}
	}

	records := Interpret(packet, s.interpreter)
	fallbacks := 0
	for _, r := range records {
		r.Seq = s.seq.Add(1)
		fallbacks += r.Fallbacks
		s.deliver(r)
	}
	s.Metrics.RecordPackets(len(records), fallbacks)
	return records
}

func (s *Server) deliver(r *record.Record) {
	doc, err := s.docEncoder.Encode(r)
	if err != nil {
		log.Warning("Error while encoding record %d: %s", r.Seq, err)
		s.Metrics.RecordEncodeError()
		return
	}

	msg := doc
	if s.encoder.ContentType() != s.docEncoder.ContentType() {
		if msg, err = s.encoder.Encode(r); err != nil {
			log.Warning("Error while encoding record %d: %s", r.Seq, err)
			s.Metrics.RecordEncodeError()
			return
		}
	}
	s.Hub.Publish(msg)

	if err = s.Archive.Put(r.Seq, doc); err != nil {
		log.Error("Error while archiving record %d: %s", r.Seq, err)
	}

	s.writerMu.Lock()
	if s.writer != nil {
		if _, err = s.writer.Write(doc); err != nil {
			log.Error("Error while writing to file %s: %s", s.writer.Name(), err)
		}
	}
	s.writerMu.Unlock()
}

// Persist starts writing records to a new file in dir. A file already being
// written is flushed first.
func (s *Server) Persist(dir, prefix string) (string, error) {
	w, err := NewPersistWriter(dir, prefix, time.Now())
	if err != nil {
		return "", err
	}
	filename := w.Name()

	s.writerMu.Lock()
	previous := s.writer
	s.writer = w
	s.writerMu.Unlock()

	if previous != nil {
		if err = previous.Flush(); err != nil {
			log.Error("Error while flushing file %s: %s", previous.Name(), err)
		}
	}
	log.Info("Persisting records to %s", filename)
	return filename, nil
}

// Flush stops persisting and closes the current file
func (s *Server) Flush() error {
	s.writerMu.Lock()
	w := s.writer
	s.writer = nil
	s.writerMu.Unlock()

	if w == nil {
		return ErrNotPersisting{}
	}
	log.Info("Flushing records file %s", w.Name())
	return w.Flush()
}

// Close flushes the persist file and releases the hub and the archive
func (s *Server) Close() {
	if err := s.Flush(); err != nil && !errors.As(err, &ErrNotPersisting{}) {
		log.Error("Error while flushing: %s", err)
	}
	if err := s.Hub.Close(); err != nil {
		log.Error("Error while closing sessions: %s", err)
	}
	if err := s.Archive.Close(); err != nil {
		log.Error("Error while closing archive: %s", err)
	}
}
