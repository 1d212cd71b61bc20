// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/webeid/lib/codec"
	"github.com/bureau-foundation/webeid/lib/netutil"
	"github.com/bureau-foundation/webeid/lib/protocol"
)

// Framing selects how messages are delimited on a Stream.
type Framing string

const (
	// FramingNative is the browser native-messaging format: a uint32
	// length in little-endian byte order, then that many bytes of
	// UTF-8 JSON.
	FramingNative Framing = "native"

	// FramingCBOR writes each message as one CBOR data item.
	FramingCBOR Framing = "cbor"
)

// MaxFrameLength bounds a native-messaging frame in either direction.
const MaxFrameLength = 1 << 20

// nativeHeaderLength is the size of the native-messaging length prefix.
const nativeHeaderLength = 4

// ParseFraming converts a flag value to a Framing.
func ParseFraming(value string) (Framing, error) {
	switch Framing(value) {
	case FramingNative, FramingCBOR:
		return Framing(value), nil
	default:
		return "", fmt.Errorf("unknown framing %q (expected %q or %q)", value, FramingNative, FramingCBOR)
	}
}

// errSkipFrame marks a frame that was read completely but could not be
// decoded. The stream stays in sync and reading continues.
var errSkipFrame = errors.New("undecodable frame")

// StreamConfig configures a Stream.
type StreamConfig struct {
	// Reader delivers frames from the peer. If it implements
	// io.Closer, Run closes it when its context is cancelled to
	// unblock a pending read.
	Reader io.Reader

	// Writer receives frames for the peer.
	Writer io.Writer

	// Framing defaults to FramingNative.
	Framing Framing

	// Origin is reported by Stream.Origin.
	Origin string

	// Logger receives dropped-frame warnings. Nil discards.
	Logger *slog.Logger
}

// Stream is a Channel over a byte stream shared with a single peer.
// Messages posted locally go to the peer only; subscribers see what the
// peer writes. Call Run to start reading.
type Stream struct {
	origin      string
	framing     Framing
	logger      *slog.Logger
	reader      io.Reader
	subscribers subscribers

	writeMu sync.Mutex
	writer  io.Writer
	encoder *codec.Encoder
	closed  bool
}

// Compile-time interface check.
var _ Channel = (*Stream)(nil)

// NewStream validates config and returns a Stream.
func NewStream(config StreamConfig) (*Stream, error) {
	if config.Reader == nil || config.Writer == nil {
		return nil, errors.New("channel: stream requires both a reader and a writer")
	}
	if config.Framing == "" {
		config.Framing = FramingNative
	}
	if _, err := ParseFraming(string(config.Framing)); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	stream := &Stream{
		origin:  config.Origin,
		framing: config.Framing,
		logger:  logger.With("framing", string(config.Framing)),
		reader:  config.Reader,
		writer:  config.Writer,
	}
	if config.Framing == FramingCBOR {
		stream.encoder = codec.NewEncoder(config.Writer)
	}
	return stream, nil
}

// Origin returns the configured origin.
func (s *Stream) Origin() string { return s.origin }

// Subscribe registers handler. Handlers run on the goroutine calling
// Run.
func (s *Stream) Subscribe(handler func(protocol.Message)) func() {
	return s.subscribers.add(handler)
}

// Post writes message as one frame. Concurrent posts are serialized.
func (s *Stream) Post(ctx context.Context, message protocol.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed {
		return ErrClosed
	}

	wire := protocol.EncodeWire(message)
	if s.framing == FramingCBOR {
		if err := s.encoder.Encode(wire); err != nil {
			return fmt.Errorf("write cbor frame: %w", err)
		}
		return nil
	}
	return writeNativeFrame(s.writer, wire)
}

// Close marks the stream closed and closes the reader and writer if
// they implement io.Closer.
func (s *Stream) Close() error {
	s.writeMu.Lock()
	s.closed = true
	s.writeMu.Unlock()

	var errs []error
	if closer, ok := s.writer.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if closer, ok := s.reader.(io.Closer); ok && any(s.reader) != any(s.writer) {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

// Run reads frames until the peer closes the stream, a read fails, or
// ctx is cancelled. Each decoded message is delivered to subscribers
// before the next frame is read. Frames that are not valid protocol
// messages are logged and skipped. The peer closing or resetting the
// connection returns nil; a stream that ends inside a frame does not.
func (s *Stream) Run(ctx context.Context) error {
	if closer, ok := s.reader.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = closer.Close() })
		defer stop()
	}

	var read func() (map[string]any, error)
	if s.framing == FramingCBOR {
		decoder := codec.NewDecoder(s.reader)
		read = func() (map[string]any, error) { return s.readCBORFrame(decoder) }
	} else {
		buffered := bufio.NewReader(s.reader)
		read = func() (map[string]any, error) { return readNativeFrame(buffered) }
	}

	for {
		wire, err := read()
		if err != nil {
			if errors.Is(err, errSkipFrame) {
				s.logger.Warn("dropping frame", "error", err)
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if netutil.IsExpectedCloseError(err) {
				return nil
			}
			return err
		}

		message, err := protocol.DecodeWire(wire)
		if err != nil {
			if errors.Is(err, protocol.ErrForeignMessage) {
				s.logger.Debug("ignoring foreign message", "error", err)
			} else {
				s.logger.Warn("dropping message", "error", err)
			}
			continue
		}
		s.subscribers.deliver(message)
	}
}

// writeNativeFrame writes the length prefix and payload in one Write so
// a frame is never interleaved with another writer's bytes.
func writeNativeFrame(w io.Writer, wire map[string]any) error {
	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("encode native frame: %w", err)
	}
	if len(payload) > MaxFrameLength {
		return fmt.Errorf("native frame length %d exceeds maximum %d", len(payload), MaxFrameLength)
	}
	frame := make([]byte, nativeHeaderLength+len(payload))
	binary.LittleEndian.PutUint32(frame[:nativeHeaderLength], uint32(len(payload)))
	copy(frame[nativeHeaderLength:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write native frame: %w", err)
	}
	return nil
}

// readNativeFrame returns io.EOF only at a frame boundary.
func readNativeFrame(r io.Reader) (map[string]any, error) {
	var header [nativeHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read native frame header: %w", err)
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length > MaxFrameLength {
		return nil, fmt.Errorf("native frame length %d exceeds maximum %d", length, MaxFrameLength)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read native frame payload: %w", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", errSkipFrame, err)
	}
	if wire == nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", errSkipFrame)
	}
	return wire, nil
}

// readCBORFrame decodes one data item. A malformed item leaves the
// decoder out of sync, so only well-formed items of the wrong shape are
// skippable.
func (s *Stream) readCBORFrame(decoder *codec.Decoder) (map[string]any, error) {
	var raw codec.RawMessage
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read cbor frame: %w", err)
	}
	var item any
	if err := codec.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", errSkipFrame, err)
	}
	wire, ok := item.(map[string]any)
	if !ok {
		if diagnostic, err := codec.Diagnose(raw); err == nil {
			s.logger.Debug("undecodable cbor frame", "diagnostic", diagnostic)
		}
		return nil, fmt.Errorf("%w: cbor item is %T, not a map", errSkipFrame, item)
	}
	return wire, nil
}
