package wasp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/waspflash/internal/logging"
	"github.com/muurk/waspflash/internal/protocol"
	"github.com/muurk/waspflash/internal/transport"
)

// Download identifies which image a stage-2 session is streaming.
type Download int

const (
	DownloadFirmware Download = iota
	DownloadConfig
)

func (d Download) String() string {
	switch d {
	case DownloadFirmware:
		return "firmware"
	case DownloadConfig:
		return "config"
	default:
		return fmt.Sprintf("Download(%d)", int(d))
	}
}

// Stage2State is a state of the packet session.
type Stage2State int

const (
	Stage2Listening Stage2State = iota
	Stage2Streaming
	Stage2Completed
	Stage2Failed
	Stage2Aborted
)

func (s Stage2State) String() string {
	switch s {
	case Stage2Listening:
		return "Listening"
	case Stage2Streaming:
		return "Streaming"
	case Stage2Completed:
		return "Completed"
	case Stage2Failed:
		return "Failed"
	case Stage2Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Stage2State(%d)", int(s))
	}
}

// Session is the state of one stage-2 transfer with a discovered peer.
type Session struct {
	PeerMAC     net.HardwareAddr
	Counter     uint16
	Download    Download
	ChunkIndex  uint32 // next chunk to send, 1-based
	TotalChunks uint32
	State       Stage2State
}

// StateName renders the state with the download being streamed.
func (s *Session) StateName() string {
	if s.State == Stage2Streaming {
		return fmt.Sprintf("Streaming(%s)", s.Download)
	}
	return s.State.String()
}

// Stage2Result summarizes a successful packet upload.
type Stage2Result struct {
	Peer           net.HardwareAddr
	FirmwareChunks int
	ConfigChunks   int
	Ignored        int
	Restarts       int
	Duration       time.Duration
}

// Stage2 uploads the second-stage firmware, and optionally a config image,
// to a coprocessor already running stage-1 firmware.
//
// The device drives the session: it announces itself with DISCOVER (or
// CONFIG for the config image), acknowledges each chunk with OK and reports
// STARTING once an image is complete. The host only ever answers.
type Stage2 struct {
	link transport.PacketLink
	cfg  Config
	log  *zap.Logger
}

// NewStage2 creates a stage-2 engine on link. The link is borrowed; the
// caller closes it.
func NewStage2(link transport.PacketLink, opts ...Option) *Stage2 {
	if link == nil {
		panic("packet link cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Stage2{
		link: link,
		cfg:  cfg,
		log:  cfg.Logger.With(zap.String("stage", StageTwo)),
	}
}

// stage2Run holds everything one Run owns.
type stage2Run struct {
	*Stage2
	firmware   *Image
	config     *Image
	configSent bool
	session    Session
	plan       protocol.ChunkPlan
	image      []byte
	sent       int
	start      time.Time
	result     Stage2Result
}

// Run serves one upload session until the device reports it has started
// the firmware (and consumed the config, when given), the session timeout
// elapses or ctx ends. config may be nil.
func (s *Stage2) Run(ctx context.Context, firmware, config *Image) (*Stage2Result, error) {
	r := &stage2Run{
		Stage2:   s,
		firmware: firmware,
		config:   config,
		session:  Session{State: Stage2Listening},
		start:    time.Now(),
	}

	err := r.run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.session.State = Stage2Aborted
		} else {
			r.session.State = Stage2Failed
		}
		s.log.Error("stage-2 upload failed", zap.String("state", r.session.StateName()), zap.Error(err))
	}
	s.cfg.Metrics.UploadFinished(StageTwo, time.Since(r.start), err)
	if err != nil {
		return nil, err
	}

	r.result.Duration = time.Since(r.start)
	r.result.Peer = r.session.PeerMAC
	return &r.result, nil
}

func (r *stage2Run) run(ctx context.Context) error {
	if r.firmware == nil || r.firmware.Size() == 0 {
		return &InputError{Reason: "firmware image is empty"}
	}
	if r.config != nil && r.config.Size() == 0 {
		return &InputError{Path: r.config.label(), Reason: "config image is empty"}
	}

	p := r.cfg.Stage2
	r.log.Info("waiting for device discovery",
		zap.String("firmware", r.firmware.String()),
		zap.Bool("config", r.config != nil),
		zap.Duration("timeout", p.SessionTimeout),
	)
	r.progress(Progress{Phase: PhaseListening})

	err := Poll(ctx, 0, p.SessionTimeout, func() (bool, error) {
		f, err := r.link.Recv(p.RecvInterval)
		if errors.Is(err, transport.ErrTimeout) {
			return false, nil
		}
		if err != nil {
			return false, &TransportError{Stage: StageTwo, State: r.session.StateName(), Op: "receive", Err: err}
		}
		return r.handle(f)
	})

	var te *TimeoutError
	if errors.As(err, &te) && te.Stage == "" {
		te.Stage = StageTwo
		te.State = r.session.StateName()
		te.Waiting = r.waitingFor()
	}
	return err
}

func (r *stage2Run) waitingFor() string {
	switch {
	case r.session.State == Stage2Streaming:
		return fmt.Sprintf("%s acknowledgement (chunk %d/%d)", r.session.Download, r.lastChunk(), r.session.TotalChunks)
	case r.configSent || r.session.PeerMAC == nil:
		return "device discovery"
	default:
		return "config discovery"
	}
}

// handle dispatches one received frame. It reports true once the session
// is complete.
func (r *stage2Run) handle(f transport.Frame) (bool, error) {
	pkt, err := protocol.DecodePacket(f.Payload)
	if err != nil {
		r.ignore("malformed", f, zap.Error(err))
		return false, nil
	}

	if ce := r.log.Check(zap.DebugLevel, "packet received"); ce != nil {
		ce.Write(zap.String("from", f.Source.String()), zap.Stringer("packet", pkt), logging.Hex("payload", pkt.Payload))
	}

	switch pkt.Response {
	case protocol.PktRespDiscover:
		return false, r.begin(DownloadFirmware, f.Source)

	case protocol.PktRespConfig:
		if r.config == nil {
			r.log.Warn("device requested a config image but none was given", zap.String("from", f.Source.String()))
			r.ignore("no_config", f)
			return false, nil
		}
		return false, r.begin(DownloadConfig, f.Source)

	case protocol.PktRespOK:
		if reason := r.checkPeer(f); reason != "" {
			r.ignore(reason, f)
			return false, nil
		}
		if r.session.ChunkIndex > r.session.TotalChunks {
			r.ignore("no_chunks_left", f)
			return false, nil
		}
		return false, r.sendChunk()

	case protocol.PktRespError:
		// Errors from a second device do not abort the session with ours
		if r.session.PeerMAC != nil && !bytes.Equal(f.Source, r.session.PeerMAC) {
			r.ignore("not_peer", f)
			return false, nil
		}
		return false, &ProtocolError{
			Stage: StageTwo,
			State: r.session.StateName(),
			Kind:  PeerError,
			Value: pkt.Response,
			Chunk: r.lastChunk(),
		}

	case protocol.PktRespStarting:
		if reason := r.checkPeer(f); reason != "" {
			r.ignore(reason, f)
			return false, nil
		}
		return r.finish(), nil

	default:
		r.ignore("unknown_response", f, zap.String("response", protocol.PacketResponseName(pkt.Response)))
		return false, nil
	}
}

// checkPeer returns why a frame cannot advance the session, or "" if it
// comes from the peer of a session that is streaming.
func (r *stage2Run) checkPeer(f transport.Frame) string {
	switch {
	case r.session.State != Stage2Streaming:
		return "not_streaming"
	case !bytes.Equal(f.Source, r.session.PeerMAC):
		return "not_peer"
	default:
		return ""
	}
}

// lastChunk is the index of the most recently sent chunk, zero if none.
func (r *stage2Run) lastChunk() int {
	if r.session.ChunkIndex == 0 {
		return 0
	}
	return int(r.session.ChunkIndex) - 1
}

// begin starts streaming download to peer, restarting any session in
// progress.
func (r *stage2Run) begin(download Download, peer net.HardwareAddr) error {
	if r.session.State == Stage2Streaming {
		r.result.Restarts++
		r.cfg.Metrics.SessionRestarted()
		r.log.Warn("discovery during transfer, restarting session",
			zap.Stringer("download", r.session.Download),
			zap.Int("chunk", r.lastChunk()),
		)
	}

	img := r.firmware
	if download == DownloadConfig {
		img = r.config
	}

	p := r.cfg.Stage2
	r.image = img.Bytes()
	r.plan = protocol.PlanChunksSized(len(r.image), p.ChunkSize, download == DownloadFirmware)
	r.sent = 0
	r.session = Session{
		PeerMAC:     append(net.HardwareAddr(nil), peer...),
		Counter:     0,
		Download:    download,
		ChunkIndex:  1,
		TotalChunks: uint32(r.plan.Total),
		State:       Stage2Streaming,
	}

	r.log.Info("device discovered",
		zap.String("peer", peer.String()),
		zap.Stringer("download", download),
		zap.Int("chunks", r.plan.Total),
	)
	return r.sendChunk()
}

// sendChunk sends the chunk at ChunkIndex and advances the session.
func (r *stage2Run) sendChunk() error {
	sess := &r.session
	firmware := sess.Download == DownloadFirmware

	c := r.plan.Chunk(int(sess.ChunkIndex))
	pkt := protocol.BuildChunkPacket(r.image, c, r.cfg.Stage2.LoadAddr, sess.Counter, firmware)
	b, err := pkt.Encode()
	if err != nil {
		return err
	}

	if ce := r.log.Check(zap.DebugLevel, "sending chunk"); ce != nil {
		ce.Write(zap.Int("chunk", c.Index), zap.Int("total", r.plan.Total), zap.Stringer("packet", pkt))
	}
	if err := r.link.Send(sess.PeerMAC, b); err != nil {
		return &TransportError{Stage: StageTwo, State: sess.StateName(), Op: "send", Err: err}
	}

	sess.Counter += r.cfg.Stage2.CounterStep
	sess.ChunkIndex++
	r.sent += c.Length

	if firmware {
		r.result.FirmwareChunks++
	} else {
		r.result.ConfigChunks++
	}
	r.cfg.Metrics.ChunkSent(StageTwo, sess.Download.String(), c.Length)

	phase := PhaseFirmware
	if !firmware {
		phase = PhaseConfig
	}
	r.progress(Progress{
		Phase:       phase,
		Chunk:       c.Index,
		TotalChunks: r.plan.Total,
		Percentage:  percentage(c.Index, r.plan.Total),
		BytesSent:   r.sent,
	})
	return nil
}

// finish handles STARTING from the peer. It reports whether the whole
// upload is complete.
func (r *stage2Run) finish() bool {
	done := r.session.Download
	r.log.Info("device starting", zap.Stringer("download", done))

	if done == DownloadConfig {
		r.configSent = true
	}

	if r.config != nil && !r.configSent {
		r.session.State = Stage2Listening
		r.progress(Progress{Phase: PhaseListening})
		return false
	}

	r.session.State = Stage2Completed
	r.progress(Progress{Phase: PhaseComplete, Percentage: 100})
	return true
}

func (r *stage2Run) ignore(reason string, f transport.Frame, fields ...zap.Field) {
	r.result.Ignored++
	r.cfg.Metrics.PacketIgnored(reason)
	if ce := r.log.Check(zap.DebugLevel, "packet ignored"); ce != nil {
		ce.Write(append(fields, zap.String("reason", reason), zap.String("from", f.Source.String()))...)
	}
}

func (r *stage2Run) progress(p Progress) {
	p.Stage = StageTwo
	p.ElapsedTime = time.Since(r.start)
	r.cfg.report(p)
}
