// Package dispatcher wraps entity writes and fires the side effects
// registered for them once the write has succeeded.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spacesedan/myriadflow/internal/db"
	"github.com/spacesedan/myriadflow/internal/models"
)

type Kind string

const (
	KindPost        Kind = "post"
	KindTag         Kind = "tag"
	KindUser        Kind = "user"
	KindTransaction Kind = "transaction"
	KindPeople      Kind = "people"
)

type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpVerify Operation = "verify"
)

type Key struct {
	Kind      Kind
	Operation Operation
}

// Origin says who asked for a post to be created. Only ingestion may keep
// the source platform; everything else is a native post.
type Origin string

const (
	OriginIngestion Origin = "ingestion"
	OriginUser      Origin = "user"
)

var (
	ErrUnknownCurrency = errors.New("currency does not exist")
	ErrUnknownAccount  = errors.New("sending account does not exist")
)

// Event is handed to every effect registered for its key. Only the field
// matching Key.Kind is set.
type Event struct {
	Key         Key
	SubjectID   string
	Post        *models.Post
	Tag         *models.Tag
	User        *models.User
	Transaction *models.Transaction
}

type Effect struct {
	Name string
	Run  func(ctx context.Context, ev Event) error
}

type Cascades map[Key][]Effect

type Store interface {
	CreatePost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, id string, patch db.PostPatch) error
	CreateTag(ctx context.Context, tag *models.Tag) error
	CurrencyExists(ctx context.Context, id string) (bool, error)
	UserExists(ctx context.Context, id string) (bool, error)
}

type Dispatcher struct {
	store    Store
	queue    *WorkQueue
	cascades Cascades
	now      func() time.Time
}

type Option func(*Dispatcher)

// WithClock replaces time.Now for timestamping.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func New(store Store, queue *WorkQueue, cascades Cascades, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		queue:    queue,
		cascades: cascades,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register appends effects for key. It must be called before the dispatcher
// is shared between goroutines.
func (d *Dispatcher) Register(key Key, effects ...Effect) {
	if d.cascades == nil {
		d.cascades = Cascades{}
	}
	d.cascades[key] = append(d.cascades[key], effects...)
}

// intercept runs before, then write, and fires the cascade for key only when
// both succeed.
func intercept[T any](ctx context.Context, d *Dispatcher, key Key, subject *T,
	before func(*T) error,
	write func(context.Context, *T) error,
	event func(*T) Event,
) error {
	if before != nil {
		if err := before(subject); err != nil {
			return err
		}
	}
	if err := write(ctx, subject); err != nil {
		return err
	}
	ev := event(subject)
	ev.Key = key
	d.fire(ev)
	return nil
}

func (d *Dispatcher) fire(ev Event) {
	effects := d.cascades[ev.Key]
	if len(effects) == 0 || d.queue == nil {
		return
	}
	for _, eff := range effects {
		d.queue.Submit(Task{
			Name: fmt.Sprintf("%s.%s:%s", ev.Key.Kind, ev.Key.Operation, eff.Name),
			Run:  func(ctx context.Context) error { return eff.Run(ctx, ev) },
		})
	}
	slog.Debug("[Dispatcher] Cascade submitted",
		slog.String("kind", string(ev.Key.Kind)),
		slog.String("operation", string(ev.Key.Operation)),
		slog.String("subject", ev.SubjectID),
		slog.Int("effects", len(effects)))
}

func (d *Dispatcher) CreatePost(ctx context.Context, post *models.Post, origin Origin) error {
	return intercept(ctx, d, Key{KindPost, OpCreate}, post,
		func(p *models.Post) error {
			now := d.now()
			p.CreatedAt = now
			p.UpdatedAt = now
			if p.OriginCreatedAt.IsZero() {
				p.OriginCreatedAt = now
			}
			if origin != OriginIngestion {
				p.Platform = models.PlatformNative
			}
			if !p.Platform.Valid() {
				return fmt.Errorf("create post: invalid platform %q", p.Platform)
			}
			p.Tags = models.NormalizeTags(p.Tags)
			return nil
		},
		d.store.CreatePost,
		func(p *models.Post) Event {
			cp := *p
			cp.Tags = append([]string(nil), p.Tags...)
			return Event{SubjectID: p.ID, Post: &cp}
		})
}

func (d *Dispatcher) UpdatePost(ctx context.Context, id string, patch db.PostPatch) error {
	return intercept(ctx, d, Key{KindPost, OpUpdate}, &patch,
		func(p *db.PostPatch) error {
			p.UpdatedAt = d.now()
			return nil
		},
		func(ctx context.Context, p *db.PostPatch) error {
			return d.store.UpdatePost(ctx, id, *p)
		},
		func(*db.PostPatch) Event { return Event{SubjectID: id} })
}

func (d *Dispatcher) CreateTag(ctx context.Context, tag *models.Tag) error {
	return intercept(ctx, d, Key{KindTag, OpCreate}, tag,
		func(t *models.Tag) error {
			now := d.now()
			t.CreatedAt = now
			t.UpdatedAt = now
			return nil
		},
		d.store.CreateTag,
		func(t *models.Tag) Event {
			cp := *t
			return Event{SubjectID: t.ID, Tag: &cp}
		})
}

// CreateUser stamps user and persists it through write, which belongs to the
// caller's user store.
func (d *Dispatcher) CreateUser(ctx context.Context, user *models.User, write func(context.Context, *models.User) error) error {
	return intercept(ctx, d, Key{KindUser, OpCreate}, user,
		func(u *models.User) error {
			now := d.now()
			u.CreatedAt = now
			u.UpdatedAt = now
			if u.Bio == "" {
				u.Bio = fmt.Sprintf("Hello, my name is %s!", u.Name)
			}
			return nil
		},
		write,
		func(u *models.User) Event {
			cp := *u
			return Event{SubjectID: u.ID, User: &cp}
		})
}

// CreateTransaction validates tx against the store before handing it to
// write.
func (d *Dispatcher) CreateTransaction(ctx context.Context, tx *models.Transaction, write func(context.Context, *models.Transaction) error) error {
	return intercept(ctx, d, Key{KindTransaction, OpCreate}, tx,
		func(t *models.Transaction) error {
			now := d.now()
			t.CreatedAt = now
			t.UpdatedAt = now
			t.CurrencyID = strings.ToUpper(t.CurrencyID)

			ok, err := d.store.CurrencyExists(ctx, t.CurrencyID)
			if err != nil {
				return fmt.Errorf("check currency %s: %w", t.CurrencyID, err)
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownCurrency, t.CurrencyID)
			}
			ok, err = d.store.UserExists(ctx, t.From)
			if err != nil {
				return fmt.Errorf("check account %s: %w", t.From, err)
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownAccount, t.From)
			}
			return nil
		},
		write,
		func(t *models.Transaction) Event {
			cp := *t
			return Event{SubjectID: t.ID, Transaction: &cp}
		})
}

// Verify runs verify for subjectID and, when it succeeds, fires the
// verification cascade.
func (d *Dispatcher) Verify(ctx context.Context, subjectID string, verify func(context.Context) error) error {
	return intercept(ctx, d, Key{KindPeople, OpVerify}, &subjectID, nil,
		func(ctx context.Context, _ *string) error { return verify(ctx) },
		func(id *string) Event { return Event{SubjectID: *id} })
}
