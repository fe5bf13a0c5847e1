package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/arena/internal/adapters/http/api"
	"github.com/okian/arena/internal/adapters/notify"
	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/adapters/storage"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/queue"
	"github.com/okian/arena/internal/domain/turn"
	"github.com/okian/arena/pkg/logger"
)

const secret = "test-secret"

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func token(claims jwt.MapClaims) string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return s
}

type fixture struct {
	mux    *http.ServeMux
	engine *turn.Engine
	clock  *clockwork.FakeClock
}

func newFixture() fixture {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000_000))
	q := queue.New(repository.NewTreapPool(), queue.WithClock(clock))
	engine := turn.New(storage.NewMemoryStore(), turn.WithClock(clock))
	srv := api.NewServer(q, engine, &mockStatsProvider{stats: map[string]any{"pool_size": 0}},
		api.WithAuthenticator(api.NewAuthenticator(secret)))
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)
	return fixture{mux: mux, engine: engine, clock: clock}
}

func (f fixture) do(method, path, player, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if player != "" {
		req.Header.Set("Authorization", "Bearer "+token(jwt.MapClaims{"playerId": player}))
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestAmbientRoutes(t *testing.T) {
	Convey("Given a registered server", t, func() {
		f := newFixture()

		Convey("Then health, stats and metrics respond", func() {
			So(f.do("GET", "/healthz", "", "").Code, ShouldEqual, http.StatusOK)
			stats := f.do("GET", "/stats", "", "")
			So(stats.Code, ShouldEqual, http.StatusOK)
			So(decode(stats)["pool_size"], ShouldEqual, float64(0))
			m := f.do("GET", "/metrics", "", "")
			So(m.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestAuth(t *testing.T) {
	Convey("Given the queue routes", t, func() {
		f := newFixture()

		Convey("When no token is sent", func() {
			w := f.do("POST", "/v1/queue/join", "", "")

			Convey("Then 401 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(decode(w)["code"], ShouldEqual, "unauthorized")
			})
		})

		Convey("When the token is signed with another key", func() {
			bad, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"playerId": "x"}).SignedString([]byte("other"))
			req := httptest.NewRequest("POST", "/v1/queue/join", nil)
			req.Header.Set("Authorization", "Bearer "+bad)
			w := httptest.NewRecorder()
			f.mux.ServeHTTP(w, req)

			Convey("Then 401 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When the token only has a subject", func() {
			req := httptest.NewRequest("POST", "/v1/queue/join", nil)
			req.Header.Set("Authorization", "Bearer "+token(jwt.MapClaims{"sub": "subject-player"}))
			w := httptest.NewRecorder()
			f.mux.ServeHTTP(w, req)

			Convey("Then the subject is the player", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["personId"], ShouldEqual, "subject-player")
			})
		})
	})

	Convey("Given an authenticator without a secret", t, func() {
		a := api.NewAuthenticator("")
		var seen string
		h := a.Middleware(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = api.PlayerIDFromRequest(r)
		})

		Convey("Then the development header identifies the player", func() {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set(api.DevPlayerHeader, "dev")
			h(httptest.NewRecorder(), req)
			So(seen, ShouldEqual, "dev")
		})
	})
}

func TestQueueRoutes(t *testing.T) {
	Convey("Given an authenticated player", t, func() {
		f := newFixture()

		Convey("When joining and polling status", func() {
			join := f.do("POST", "/v1/queue/join", "alice", "")
			f.clock.Advance(7 * time.Second)
			status := f.do("GET", "/v1/queue/status", "alice", "")

			Convey("Then the player waits with a position", func() {
				So(join.Code, ShouldEqual, http.StatusOK)
				So(decode(join), ShouldResemble, map[string]any{"message": "waiting", "personId": "alice"})
				So(status.Code, ShouldEqual, http.StatusOK)
				body := decode(status)
				So(body["status"], ShouldEqual, "WAITING")
				So(body["waitingTime"], ShouldEqual, float64(7))
				So(body["position"], ShouldEqual, float64(0))
			})
		})

		Convey("When polling without being queued", func() {
			w := f.do("GET", "/v1/queue/status", "bob", "")

			Convey("Then 404 not_in_queue is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode(w)["code"], ShouldEqual, "not_in_queue")
			})
		})

		Convey("When leaving without being queued", func() {
			w := f.do("POST", "/v1/queue/leave", "bob", "")

			Convey("Then it still succeeds", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["message"], ShouldEqual, "left")
			})
		})
	})
}

func TestGameRoutes(t *testing.T) {
	Convey("Given a match between P1 and P2", t, func() {
		f := newFixture()
		created := f.do("POST", "/v1/game/match", "", `{"player1Id":"P1","player2Id":"P2"}`)
		So(created.Code, ShouldEqual, http.StatusCreated)
		matchID, _ := decode(created)["id"].(string)
		So(matchID, ShouldNotBeEmpty)

		move := func(player, body string) *httptest.ResponseRecorder {
			return f.do("POST", "/v1/game/move", player, body)
		}
		body := func(turnNumber, attack string) string {
			return `{"matchId":"` + matchID + `","attackTarget":"` + attack + `","defenseTarget":"BODY","turnNumber":` + turnNumber + `}`
		}

		Convey("When P1 submits a valid move", func() {
			w := move("P1", body("1", "HEAD"))

			Convey("Then 202 acknowledges it and the match is in progress", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w), ShouldResemble, map[string]any{"message": "Move accepted", "turnNumber": float64(1), "matchId": matchID})
				got := f.do("GET", "/v1/game/"+matchID, "", "")
				So(got.Code, ShouldEqual, http.StatusOK)
				So(decode(got)["status"], ShouldEqual, "IN_PROGRESS")
			})

			Convey("And submits again", func() {
				w := move("P1", body("1", "LEGS"))

				Convey("Then 400 move_already_exists", func() {
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(decode(w)["code"], ShouldEqual, "move_already_exists")
				})
			})
		})

		Convey("When errors are mapped", func() {
			Convey("Then each validation failure gets its status", func() {
				So(move("P3", body("1", "HEAD")).Code, ShouldEqual, http.StatusForbidden)
				So(move("P1", body("5", "HEAD")).Code, ShouldEqual, http.StatusBadRequest)
				So(move("P1", body("1", "ARMS")).Code, ShouldEqual, http.StatusBadRequest)
				So(f.do("GET", "/v1/game/nope", "", "").Code, ShouldEqual, http.StatusNotFound)
				So(f.do("POST", "/v1/game/match", "", `{"player1Id":"A","player2Id":"A"}`).Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a field is missing", func() {
			w := move("P1", `{"matchId":"`+matchID+`","attackTarget":"HEAD","defenseTarget":"BODY"}`)

			Convey("Then 400 bad_request names it", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["message"], ShouldContainSubstring, "turnNumber")
			})
		})

		Convey("When the body is not JSON", func() {
			w := move("P1", `{`)

			Convey("Then 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestNotificationRoute(t *testing.T) {
	Convey("Given the API served with match notifications", t, func() {
		hub := notify.NewHub()
		defer func() { _ = hub.Close() }()
		q := queue.New(repository.NewTreapPool())
		engine := turn.New(storage.NewMemoryStore())
		srv := api.NewServer(q, engine, &mockStatsProvider{},
			api.WithAuthenticator(api.NewAuthenticator(secret)),
			api.WithNotifications(notify.NewWebSocketHandler(hub, api.PlayerIDFromRequest)),
		)
		mux := http.NewServeMux()
		srv.Register(context.Background(), mux)
		ts := httptest.NewServer(mux)
		defer ts.Close()
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/queue/ws?token=" + token(jwt.MapClaims{"playerId": "alice"})

		Convey("When a player connects with a token", func() {
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			Convey("Then the upgrade passes the metrics wrapper", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusSwitchingProtocols)
			})

			Convey("And a published match reaches the socket", func() {
				deadline := time.Now().Add(2 * time.Second)
				for hub.SubscriberCount("alice") == 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(hub.SubscriberCount("alice"), ShouldEqual, 1)

				hub.Publish(context.Background(), "alice", model.MatchFoundEvent{Type: model.EventMatchFound, MatchID: "m-1", OpponentNickname: "bob"})
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				var ev model.MatchFoundEvent
				So(conn.ReadJSON(&ev), ShouldBeNil)
				So(ev.MatchID, ShouldEqual, "m-1")
				So(ev.OpponentNickname, ShouldEqual, "bob")
			})
		})

		Convey("When the token is missing", func() {
			_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/queue/ws", nil)

			Convey("Then the upgrade is refused", func() {
				So(err, ShouldNotBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
			})
		})
	})
}
