package turn_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/arena/internal/adapters/storage"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/turn"
	"github.com/okian/arena/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// countingStore counts StartMatch calls that won.
type countingStore struct {
	*storage.MemoryStore
	starts int
}

func (c *countingStore) StartMatch(ctx context.Context, id string, at time.Time) (bool, error) {
	ok, err := c.MemoryStore.StartMatch(ctx, id, at)
	if ok {
		c.starts++
	}
	return ok, err
}

// barrierStore holds every SaveMove caller until all of them have saved, so
// both submitters of a turn see two moves before either resolves.
type barrierStore struct {
	*storage.MemoryStore
	saved *sync.WaitGroup
}

func (b *barrierStore) SaveMove(ctx context.Context, mv *model.Move) error {
	err := b.MemoryStore.SaveMove(ctx, mv)
	b.saved.Done()
	b.saved.Wait()
	return err
}

// brokenStartStore stores moves but never manages to start a match.
type brokenStartStore struct {
	*storage.MemoryStore
}

func (brokenStartStore) StartMatch(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("connection reset")
}

func TestCreateMatch(t *testing.T) {
	Convey("Given an engine", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
		e := turn.New(storage.NewMemoryStore(), turn.WithClock(clock), turn.WithMaxHP(80), turn.WithIDGenerator(sequentialIDs()))

		Convey("When creating a match for two players", func() {
			m, err := e.CreateMatch(ctx, "p1", "p2")

			Convey("Then it waits at turn 1 with full HP", func() {
				So(err, ShouldBeNil)
				So(m.ID, ShouldEqual, "id-1")
				So(m.Status, ShouldEqual, model.StatusWaiting)
				So(m.CurrentTurnNumber, ShouldEqual, 1)
				So(m.Player1HP, ShouldEqual, 80)
				So(m.Player2HP, ShouldEqual, 80)
				So(m.CreatedAt, ShouldEqual, clock.Now().UTC())
				So(m.CurrentTurnStart, ShouldBeNil)

				got, err := e.GetMatch(ctx, m.ID)
				So(err, ShouldBeNil)
				So(got.Player2ID, ShouldEqual, "p2")
			})
		})

		Convey("When the players are the same or missing", func() {
			_, err1 := e.CreateMatch(ctx, "p1", "p1")
			_, err2 := e.CreateMatch(ctx, "", "p2")

			Convey("Then the match is rejected", func() {
				So(errors.Is(err1, turn.ErrInvalidPlayers), ShouldBeTrue)
				So(errors.Is(err2, turn.ErrInvalidPlayers), ShouldBeTrue)
			})
		})

		Convey("When reading an unknown match", func() {
			_, err := e.GetMatch(ctx, "nope")

			Convey("Then it is not found", func() {
				So(errors.Is(err, turn.ErrMatchNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestSubmitMove(t *testing.T) {
	Convey("Given a waiting match M between P1 and P2", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
		store := &countingStore{MemoryStore: storage.NewMemoryStore()}
		e := turn.New(store, turn.WithClock(clock), turn.WithIDGenerator(sequentialIDs()))
		m, err := e.CreateMatch(ctx, "P1", "P2")
		So(err, ShouldBeNil)

		move := func(player string, turnNumber int, attack, defense string) turn.MoveRequest {
			return turn.MoveRequest{
				MatchID: m.ID, PlayerID: player, TurnNumber: turnNumber,
				AttackTarget: attack, DefenseTarget: defense,
			}
		}

		Convey("When P1 submits HEAD/BODY for turn 1", func() {
			clock.Advance(2 * time.Second)
			ack, err := e.SubmitMove(ctx, move("P1", 1, "HEAD", "BODY"))

			Convey("Then the move is accepted and the match starts", func() {
				So(err, ShouldBeNil)
				So(ack, ShouldResemble, model.MoveAck{Message: "Move accepted", TurnNumber: 1, MatchID: m.ID})
				got, _ := e.GetMatch(ctx, m.ID)
				So(got.Status, ShouldEqual, model.StatusInProgress)
				So(got.CurrentTurnStart, ShouldNotBeNil)
				So(got.CurrentTurnStart.Equal(clock.Now()), ShouldBeTrue)
				So(store.MoveCount(m.ID), ShouldEqual, 1)
			})

			Convey("And submits again for the same turn with another payload", func() {
				_, err := e.SubmitMove(ctx, move("P1", 1, "LEGS", "LEGS"))

				Convey("Then the duplicate is rejected", func() {
					So(errors.Is(err, turn.ErrMoveAlreadyExists), ShouldBeTrue)
					So(store.MoveCount(m.ID), ShouldEqual, 1)
				})
			})

			Convey("And P2 submits for the same turn", func() {
				clock.Advance(time.Second)
				_, err := e.SubmitMove(ctx, move("P2", 1, "LEGS", "HEAD"))

				Convey("Then it is accepted without a second transition", func() {
					So(err, ShouldBeNil)
					So(store.starts, ShouldEqual, 1)
					got, _ := e.GetMatch(ctx, m.ID)
					So(got.Status, ShouldEqual, model.StatusInProgress)
					So(got.CurrentTurnStart.Equal(clock.Now().Add(-time.Second)), ShouldBeTrue)
				})
			})
		})

		Convey("When P1 submits turn 5 while the match is at turn 1", func() {
			_, err := e.SubmitMove(ctx, move("P1", 5, "HEAD", "BODY"))

			Convey("Then it is rejected and nothing is stored", func() {
				So(errors.Is(err, turn.ErrInvalidTurnNumber), ShouldBeTrue)
				So(store.MoveCount(m.ID), ShouldEqual, 0)
				got, _ := e.GetMatch(ctx, m.ID)
				So(got.Status, ShouldEqual, model.StatusWaiting)
			})
		})

		Convey("When the match does not exist", func() {
			req := move("P1", 1, "HEAD", "BODY")
			req.MatchID = "missing"
			_, err := e.SubmitMove(ctx, req)

			Convey("Then MatchNotFound wins", func() {
				So(errors.Is(err, turn.ErrMatchNotFound), ShouldBeTrue)
			})
		})

		Convey("When a stranger submits with a bad turn and bad targets", func() {
			_, err := e.SubmitMove(ctx, move("P3", 9, "ARMS", "ARMS"))

			Convey("Then PlayerNotParticipant wins", func() {
				So(errors.Is(err, turn.ErrPlayerNotParticipant), ShouldBeTrue)
			})
		})

		Convey("When the match is finished", func() {
			_, _ = e.SubmitMove(ctx, move("P1", 1, "HEAD", "BODY"))
			finished := finishMatch(ctx, store.MemoryStore, m.ID)
			So(finished, ShouldBeTrue)
			_, err := e.SubmitMove(ctx, move("P2", 7, "ARMS", "BODY"))

			Convey("Then MatchFinished wins over turn and target errors", func() {
				So(errors.Is(err, turn.ErrMatchFinished), ShouldBeTrue)
			})
		})

		Convey("When a duplicate also carries a bad target", func() {
			_, _ = e.SubmitMove(ctx, move("P1", 1, "HEAD", "BODY"))
			_, err := e.SubmitMove(ctx, move("P1", 1, "ARMS", "BODY"))

			Convey("Then MoveAlreadyExists wins", func() {
				So(errors.Is(err, turn.ErrMoveAlreadyExists), ShouldBeTrue)
			})
		})

		Convey("When the targets are unknown", func() {
			_, err1 := e.SubmitMove(ctx, move("P1", 1, "ARMS", "BODY"))
			_, err2 := e.SubmitMove(ctx, move("P1", 1, "HEAD", "head"))

			Convey("Then InvalidMoveTarget is returned and nothing is stored", func() {
				So(errors.Is(err1, turn.ErrInvalidMoveTarget), ShouldBeTrue)
				So(errors.Is(err2, turn.ErrInvalidMoveTarget), ShouldBeTrue)
				So(store.MoveCount(m.ID), ShouldEqual, 0)
			})
		})
	})
}

// finishMatch forces a match into FINISHED the way a resolver would.
func finishMatch(ctx context.Context, s *storage.MemoryStore, id string) bool {
	m, found, _ := s.GetMatch(ctx, id)
	if !found {
		return false
	}
	m.Status = model.StatusFinished
	return s.UpdateMatch(ctx, m) == nil
}

func TestRoundResolver(t *testing.T) {
	Convey("Given an engine with a recording resolver", t, func() {
		ctx := context.Background()
		var calls [][]model.Move
		var seen *model.Match
		resolver := turn.RoundResolverFunc(func(_ context.Context, m *model.Match, moves []model.Move) error {
			seen = m
			calls = append(calls, moves)
			return errors.New("resolver failure is only logged")
		})
		e := turn.New(storage.NewMemoryStore(), turn.WithResolver(resolver))
		m, err := e.CreateMatch(ctx, "P1", "P2")
		So(err, ShouldBeNil)

		Convey("When only one player has moved", func() {
			_, err := e.SubmitMove(ctx, turn.MoveRequest{MatchID: m.ID, PlayerID: "P1", AttackTarget: "HEAD", DefenseTarget: "BODY", TurnNumber: 1})

			Convey("Then the resolver is not called", func() {
				So(err, ShouldBeNil)
				So(calls, ShouldBeEmpty)
			})
		})

		Convey("When both players have moved", func() {
			_, err1 := e.SubmitMove(ctx, turn.MoveRequest{MatchID: m.ID, PlayerID: "P1", AttackTarget: "HEAD", DefenseTarget: "BODY", TurnNumber: 1})
			_, err2 := e.SubmitMove(ctx, turn.MoveRequest{MatchID: m.ID, PlayerID: "P2", AttackTarget: "LEGS", DefenseTarget: "HEAD", TurnNumber: 1})

			Convey("Then it sees both moves and the started match", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(len(calls), ShouldEqual, 1)
				So(len(calls[0]), ShouldEqual, 2)
				So(seen.Status, ShouldEqual, model.StatusInProgress)
			})
		})
	})
}

func TestConcurrentSubmissions(t *testing.T) {
	Convey("Given a waiting match and a counting resolver", t, func() {
		ctx := context.Background()
		var resolved atomic.Int32
		resolver := turn.RoundResolverFunc(func(context.Context, *model.Match, []model.Move) error {
			resolved.Add(1)
			return nil
		})
		saved := &sync.WaitGroup{}
		store := &barrierStore{MemoryStore: storage.NewMemoryStore(), saved: saved}
		e := turn.New(store, turn.WithResolver(resolver))
		m, err := e.CreateMatch(ctx, "P1", "P2")
		So(err, ShouldBeNil)

		Convey("When both players submit turn 1 at the same time", func() {
			saved.Add(2)
			errs := make([]error, 2)
			var wg sync.WaitGroup
			for i, player := range []string{"P1", "P2"} {
				wg.Add(1)
				go func(i int, player string) {
					defer wg.Done()
					_, errs[i] = e.SubmitMove(ctx, turn.MoveRequest{
						MatchID: m.ID, PlayerID: player, TurnNumber: 1,
						AttackTarget: "HEAD", DefenseTarget: "LEGS",
					})
				}(i, player)
			}
			wg.Wait()

			Convey("Then both are accepted and the turn is resolved once", func() {
				So(errs[0], ShouldBeNil)
				So(errs[1], ShouldBeNil)
				So(store.MoveCount(m.ID), ShouldEqual, 2)
				So(resolved.Load(), ShouldEqual, 1)
			})
		})
	})
}

func TestStartFailureAfterSave(t *testing.T) {
	Convey("Given a store that cannot start matches", t, func() {
		ctx := context.Background()
		store := brokenStartStore{MemoryStore: storage.NewMemoryStore()}
		e := turn.New(store)
		m, err := e.CreateMatch(ctx, "P1", "P2")
		So(err, ShouldBeNil)

		Convey("When P1 submits the first move", func() {
			ack, err := e.SubmitMove(ctx, turn.MoveRequest{
				MatchID: m.ID, PlayerID: "P1", TurnNumber: 1,
				AttackTarget: "BODY", DefenseTarget: "HEAD",
			})

			Convey("Then the stored move is still acknowledged", func() {
				So(err, ShouldBeNil)
				So(ack.TurnNumber, ShouldEqual, 1)
				So(ack.MatchID, ShouldEqual, m.ID)
				So(store.MoveCount(m.ID), ShouldEqual, 1)
			})

			Convey("And the match stays waiting", func() {
				got, err := e.GetMatch(ctx, m.ID)
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.StatusWaiting)
			})
		})
	})
}
