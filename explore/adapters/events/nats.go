package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const (
	SubjectLiked     = "memes.liked"
	SubjectCommented = "memes.commented"
	SubjectUploaded  = "memes.uploaded"
)

// Event is the JSON payload carried on every memes.* subject.
type Event struct {
	MemeID   string `json:"meme_id"`
	Likes    int    `json:"likes,omitempty"`
	Comments int    `json:"comments,omitempty"`
}

type Publisher struct {
	log *slog.Logger
	nc  *nats.Conn
}

func NewPublisher(log *slog.Logger, addr string) (*Publisher, error) {
	nc, err := nats.Connect(addr, nats.Name("memeverse-explore"))
	if err != nil {
		log.Error("failed to connect to nats", "address", addr, "error", err)
		return nil, err
	}
	return &Publisher{log: log, nc: nc}, nil
}

// Conn exposes the connection so subscribers can share it.
func (p *Publisher) Conn() *nats.Conn {
	return p.nc
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

func (p *Publisher) Ping(context.Context) error {
	if p.nc == nil || !p.nc.IsConnected() {
		return errors.New("nats: not connected")
	}
	return nil
}

func (p *Publisher) PublishLiked(memeID string, likes int) {
	p.publish(SubjectLiked, Event{MemeID: memeID, Likes: likes})
}

func (p *Publisher) PublishCommented(memeID string, comments int) {
	p.publish(SubjectCommented, Event{MemeID: memeID, Comments: comments})
}

func (p *Publisher) PublishUploaded(memeID string) {
	p.publish(SubjectUploaded, Event{MemeID: memeID})
}

func (p *Publisher) publish(subject string, ev Event) {
	if p.nc == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("failed to encode event", "subject", subject, "error", err)
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Error("failed to publish event", "subject", subject, "error", err)
		return
	}
	if err := p.nc.Flush(); err != nil {
		p.log.Warn("failed to flush nats connection", "error", err)
	}
}
