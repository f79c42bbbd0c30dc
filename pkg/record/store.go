// Package record keeps the uplink frames seen by a bridge in a storm
// (boltdb) database.
package record

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/asdine/storm"
	"github.com/golang/glog"

	"github.com/robotalks/omnilink/pkg/wire"
)

// DefaultBacklog is the number of frames buffered before Record drops.
const DefaultBacklog = 256

// Entry is one recorded frame.
type Entry struct {
	ID      int       `storm:"increment"`
	Time    time.Time `storm:"index"`
	Tag     byte      `storm:"index"`
	Counter uint32
	Data    []byte
}

// Frame returns the recorded frame.
func (e *Entry) Frame() (wire.Frame, error) {
	return wire.FrameFrom(e.Data)
}

// String implements Stringer.
func (e Entry) String() string {
	f, err := e.Frame()
	if err != nil {
		return err.Error()
	}
	return e.Time.Format("15:04:05.000") + " " + wire.Describe(&f)
}

// Store records frames. Record only queues, Run saves in background.
type Store struct {
	DB *storm.DB

	backlog chan Entry
	saved   atomic.Uint64
	dropped atomic.Uint64
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := storm.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Init(&Entry{}); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{DB: db, backlog: make(chan Entry, DefaultBacklog)}, nil
}

// Close implements io.Closer.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Record implements relay.Recorder.
func (s *Store) Record(f wire.Frame) {
	select {
	case s.backlog <- entryOf(time.Now(), f):
	default:
		s.dropped.Add(1)
	}
}

// Save saves a frame synchronously.
func (s *Store) Save(f wire.Frame) error {
	e := entryOf(time.Now(), f)
	return s.save(&e)
}

// Run implements framework.Runnable.
func (s *Store) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return ctx.Err()
		case e := <-s.backlog:
			if err := s.save(&e); err != nil {
				glog.Errorf("record: save: %v", err)
			}
		}
	}
}

// Stats returns the numbers of saved and dropped frames.
func (s *Store) Stats() (saved, dropped uint64) {
	return s.saved.Load(), s.dropped.Load()
}

// Recent returns the last n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	var entries []Entry
	err := s.DB.All(&entries, storm.Limit(n), storm.Reverse())
	if err == storm.ErrNotFound {
		err = nil
	}
	return entries, err
}

// ByTag returns up to n entries with tag, newest first.
func (s *Store) ByTag(tag byte, n int) ([]Entry, error) {
	var entries []Entry
	err := s.DB.Find("Tag", tag, &entries, storm.Limit(n), storm.Reverse())
	if err == storm.ErrNotFound {
		err = nil
	}
	return entries, err
}

// Count returns the number of entries.
func (s *Store) Count() (int, error) {
	return s.DB.Count(&Entry{})
}

func (s *Store) flush() {
	for {
		select {
		case e := <-s.backlog:
			if err := s.save(&e); err != nil {
				glog.Errorf("record: save: %v", err)
			}
		default:
			return
		}
	}
}

func (s *Store) save(e *Entry) error {
	if err := s.DB.Save(e); err != nil {
		return err
	}
	s.saved.Add(1)
	return nil
}

func entryOf(t time.Time, f wire.Frame) Entry {
	h := f.Header()
	return Entry{Time: t, Tag: h.Tag(), Counter: h.Counter(), Data: append([]byte(nil), f[:]...)}
}
