package httpapi

import (
	"net/http"
	"time"

	"github.com/metalblueberry/bard/pkg/metronome"
	"github.com/metalblueberry/bard/pkg/progression"
	"github.com/metalblueberry/bard/pkg/tuner"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// beatBuffer is the per-connection subscription depth
const beatBuffer = 16

type beatMessage struct {
	metronome.Beat
	Position *progression.Position `json:"position,omitempty"`
}

type stringResponse struct {
	Name      string  `json:"name"`
	Frequency float64 `json:"frequency"`
	Locked    bool    `json:"locked"`
}

type tunerResponse struct {
	At        time.Time        `json:"at"`
	HasPitch  bool             `json:"has_pitch"`
	Frequency float64          `json:"frequency,omitempty"`
	Clarity   float64          `json:"clarity,omitempty"`
	Note      string           `json:"note,omitempty"`
	Cents     int              `json:"cents"`
	Locked    bool             `json:"locked"`
	Strings   []stringResponse `json:"strings"`
}

func newTunerResponse(s tuner.Snapshot) tunerResponse {
	res := tunerResponse{
		At:       s.At,
		HasPitch: s.HasPitch,
		Strings:  make([]stringResponse, 0, len(s.Strings)),
	}
	if s.HasPitch {
		res.Frequency = s.Smoothed
		res.Clarity = s.Estimate.Clarity
	}
	if s.HasReading {
		res.Note = s.Reading.Reference.Name
		res.Cents = s.Reading.Cents
		res.Locked = s.Reading.Locked
	}
	for _, str := range s.Strings {
		res.Strings = append(res.Strings, stringResponse{
			Name:      str.Reference.Name,
			Frequency: str.Reference.Frequency,
			Locked:    str.Locked,
		})
	}
	return res
}

// handleBeats streams every beat to the client until either side closes.
func (s *Server) handleBeats(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "beat stream closed") }()

	// Clients only listen; CloseRead handles their close frame.
	ctx := conn.CloseRead(r.Context())

	beats, unsubscribe := s.clock.Subscribe(beatBuffer)
	defer unsubscribe()

	var follower *progression.Follower
	if s.progression != nil {
		follower = progression.NewFollower(*s.progression)
	}

	s.logger.Debug("beat stream opened", zap.String("remote", r.RemoteAddr))
	for {
		select {
		case <-ctx.Done():
			return
		case beat, ok := <-beats:
			if !ok {
				return
			}
			msg := beatMessage{Beat: beat}
			if follower != nil {
				pos := follower.Advance(beat.Count)
				msg.Position = &pos
			}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				s.logger.Debug("beat stream write failed", zap.Error(err))
				return
			}
		}
	}
}
