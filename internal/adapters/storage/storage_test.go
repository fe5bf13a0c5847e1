package storage_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
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

var (
	_ turn.Store = (*storage.MemoryStore)(nil)
	_ turn.Store = (*storage.GormStore)(nil)
)

type storeFactory func(t *testing.T) turn.Store

func TestStores(t *testing.T) {
	factories := map[string]storeFactory{
		"memory": func(*testing.T) turn.Store { return storage.NewMemoryStore() },
	}
	if dsn := os.Getenv("ARENA_TEST_POSTGRES_DSN"); dsn != "" {
		factories["postgres"] = func(t *testing.T) turn.Store {
			ctx := context.Background()
			db, err := storage.Connect(ctx, dsn, false)
			if err != nil {
				t.Fatalf("connect: %v", err)
			}
			s := storage.NewGormStore(db)
			if err := s.Migrate(ctx); err != nil {
				t.Fatalf("migrate: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		}
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			testStoreContract(t, factory)
		})
	}
}

func newMatch() *model.Match {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Match{
		ID:                uuid.NewString(),
		Player1ID:         "p1",
		Player2ID:         "p2",
		Status:            model.StatusWaiting,
		CurrentTurnNumber: 1,
		Player1HP:         100,
		Player2HP:         100,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func testStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	Convey("Given a store with one match", t, func() {
		s := newStore(t)
		m := newMatch()
		So(s.CreateMatch(ctx, m), ShouldBeNil)

		Convey("Then it can be read back", func() {
			got, found, err := s.GetMatch(ctx, m.ID)
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(got.Player1ID, ShouldEqual, "p1")
			So(got.Status, ShouldEqual, model.StatusWaiting)
			So(got.Player2HP, ShouldEqual, 100)
			So(got.CurrentTurnStart, ShouldBeNil)
		})

		Convey("Then creating the same id twice is a duplicate", func() {
			err := s.CreateMatch(ctx, m)
			So(errors.Is(err, storage.ErrDuplicate), ShouldBeTrue)
		})

		Convey("Then unknown ids are not found", func() {
			_, found, err := s.GetMatch(ctx, uuid.NewString())
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
		})

		Convey("When a resolver advances and finishes it", func() {
			m.CurrentTurnNumber = 3
			m.Player2HP = 0
			m.Status = model.StatusFinished
			m.WinnerID = "p1"
			So(s.UpdateMatch(ctx, m), ShouldBeNil)

			Convey("Then the new state is stored", func() {
				got, _, err := s.GetMatch(ctx, m.ID)
				So(err, ShouldBeNil)
				So(got.CurrentTurnNumber, ShouldEqual, 3)
				So(got.Player2HP, ShouldEqual, 0)
				So(got.Status, ShouldEqual, model.StatusFinished)
				So(got.WinnerID, ShouldEqual, "p1")
			})
		})

		Convey("When updating a match that was never created", func() {
			err := s.UpdateMatch(ctx, newMatch())

			Convey("Then it is not found", func() {
				So(errors.Is(err, storage.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When many callers start it at once", func() {
			var wins atomic.Int32
			var wg sync.WaitGroup
			at := time.Now().UTC().Truncate(time.Millisecond)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if ok, err := s.StartMatch(ctx, m.ID, at); err == nil && ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one transition happens", func() {
				So(wins.Load(), ShouldEqual, 1)
				got, _, _ := s.GetMatch(ctx, m.ID)
				So(got.Status, ShouldEqual, model.StatusInProgress)
				So(got.CurrentTurnStart, ShouldNotBeNil)
				So(got.CurrentTurnStart.Equal(at), ShouldBeTrue)
			})
		})

		Convey("When both submitters claim turn 1 at once", func() {
			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if ok, err := s.ClaimRound(ctx, m.ID, 1); err == nil && ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one claim succeeds", func() {
				So(wins.Load(), ShouldEqual, 1)
			})

			Convey("And an update does not release the claim", func() {
				m.Player1HP = 90
				So(s.UpdateMatch(ctx, m), ShouldBeNil)
				ok, err := s.ClaimRound(ctx, m.ID, 1)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})

			Convey("And the next turn can still be claimed once", func() {
				ok, err := s.ClaimRound(ctx, m.ID, 2)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				ok, _ = s.ClaimRound(ctx, m.ID, 2)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When claiming a round of an unknown match", func() {
			ok, err := s.ClaimRound(ctx, uuid.NewString(), 1)

			Convey("Then nothing is claimed", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When moves are saved", func() {
			for _, p := range []string{"p1", "p2"} {
				So(s.SaveMove(ctx, &model.Move{
					ID: uuid.NewString(), MatchID: m.ID, PlayerID: p,
					AttackTarget: model.TargetHead, DefenseTarget: model.TargetLegs,
					TurnNumber: 1, CreatedAt: time.Now().UTC(),
				}), ShouldBeNil)
			}

			Convey("Then existence is keyed by match, player and turn", func() {
				ok, err := s.MoveExists(ctx, m.ID, "p1", 1)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				ok, _ = s.MoveExists(ctx, m.ID, "p1", 2)
				So(ok, ShouldBeFalse)
				moves, err := s.MovesForTurn(ctx, m.ID, 1)
				So(err, ShouldBeNil)
				So(len(moves), ShouldEqual, 2)
				So(moves[0].AttackTarget, ShouldEqual, model.TargetHead)
			})
		})
	})
}

func TestMemoryStoreCopies(t *testing.T) {
	Convey("Given a memory store", t, func() {
		s := storage.NewMemoryStore()
		m := newMatch()
		So(s.CreateMatch(context.Background(), m), ShouldBeNil)

		Convey("Then reads return copies", func() {
			got, _, _ := s.GetMatch(context.Background(), m.ID)
			got.Status = model.StatusFinished
			again, _, _ := s.GetMatch(context.Background(), m.ID)
			So(again.Status, ShouldEqual, model.StatusWaiting)
		})
	})
}

func TestConnectFailure(t *testing.T) {
	Convey("Given an unreachable postgres", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := storage.Connect(ctx, "postgres://u:p@127.0.0.1:1/none?sslmode=disable&connect_timeout=1", false)

		Convey("Then a connect error is returned", func() {
			So(errors.Is(err, storage.ErrConnect), ShouldBeTrue)
		})
	})
}
