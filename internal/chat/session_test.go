package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircgate/internal/chat/chattest"
	"github.com/vovakirdan/ircgate/internal/config"
	"github.com/vovakirdan/ircgate/internal/core"
)

var (
	alice = &core.User{ID: 1, Name: "alice"}
	carol = &core.User{ID: 2, Name: "carol", Gender: core.GenderFemale}
	dave  = &core.User{ID: 3, Name: "dave"}
)

// slowSync keeps the background loop from firing during tests that drive checks by hand.
var slowSync = config.SyncConfig{Tick: time.Hour, MessagesInterval: time.Hour, UsersInterval: time.Hour}

func newTestSession(t *testing.T, syncCfg config.SyncConfig, idler *Idler) (*Session, *chattest.Backend, *chattest.Recorder) {
	t.Helper()

	fake := chattest.New()
	a, c, d := *alice, *carol, *dave
	fake.AddRoom("lobby", "Main room", &a, &c)
	fake.AddRoom("garden", "Quiet corner", &d)

	rec := &chattest.Recorder{}
	logger := zerolog.Nop()
	s := NewSession(fake, core.NewDirectory(), rec, syncCfg, idler, &logger)
	t.Cleanup(s.Stop)

	if err := s.LoginAnonymous(context.Background(), "bob", core.GenderMale); err != nil {
		t.Fatalf("login: %v", err)
	}
	return s, fake, rec
}

func mustJoin(t *testing.T, s *Session, name string) *RoomView {
	t.Helper()
	view, err := s.Join(context.Background(), name)
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return view
}

// assertIndexChain checks that every call for roomID used the index the previous call returned
// and that the index never moved backwards.
func assertIndexChain(t *testing.T, calls []chattest.Call, roomID string) {
	t.Helper()
	prev := ""
	for i, c := range calls {
		if c.RoomID != roomID {
			continue
		}
		if c.Index != prev {
			t.Fatalf("call %d (%s) used index %q, expected %q", i, c.Op, c.Index, prev)
		}
		if position(c.Result) < position(c.Index) {
			t.Fatalf("call %d moved index backwards: %q -> %q", i, c.Index, c.Result)
		}
		prev = c.Result
	}
}

func position(idx string) int {
	_, n, ok := strings.Cut(idx, ".")
	if !ok {
		return 0
	}
	v, _ := strconv.Atoi(n)
	return v
}

func TestJoinPopulatesRoomAndDirectory(t *testing.T) {
	s, _, _ := newTestSession(t, slowSync, nil)

	view := mustJoin(t, s, "lobby")
	if view.Room.ID == core.NoRoomID || view.Room.Description != "Main room" {
		t.Fatalf("unexpected room info: %+v", view.Room)
	}
	if len(view.Users) != 3 {
		t.Fatalf("expected alice, carol and bob, got %+v", view.Users)
	}
	if got := s.ActiveRoomNames(); len(got) != 1 || got[0] != "lobby" {
		t.Fatalf("unexpected active rooms: %v", got)
	}
	if u, ok := s.UserByName("carol"); !ok || u.Gender != core.GenderFemale {
		t.Fatalf("carol not resolvable: %+v %v", u, ok)
	}
	if _, ok := s.dir.ByID(1); !ok {
		t.Fatalf("room members must be registered in the directory")
	}
}

func TestJoinUnknownRoomFails(t *testing.T) {
	s, _, _ := newTestSession(t, slowSync, nil)

	_, err := s.Join(context.Background(), "nowhere")
	if !errors.Is(err, core.ErrRoom) {
		t.Fatalf("expected room error, got %v", err)
	}
	if len(s.ActiveRoomNames()) != 0 {
		t.Fatalf("failed join must not add a room")
	}
}

func TestMessagesCheckDispatchesInOrder(t *testing.T) {
	s, fake, rec := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")

	fake.Push("lobby",
		chattest.Chat(1, "fish &amp; chips"),
		chattest.Enter(core.User{ID: 5, Name: "eve"}),
		chattest.Leave(2),
		chattest.Notice("room closes soon"),
		chattest.Leave(99),
	)
	s.CheckMessages(context.Background())

	want := []string{
		"message lobby <alice> fish & chips whisper=false",
		"joined lobby eve",
		"left lobby carol",
		"system lobby room closes soon",
	}
	got := rec.Events()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected events:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}

	view, _ := s.ActiveRoom("lobby")
	names := make([]string, 0, len(view.Users))
	for _, u := range view.Users {
		names = append(names, u.Name)
	}
	if strings.Join(names, ",") != "alice,bob,eve" {
		t.Fatalf("unexpected members: %v", names)
	}
}

func TestEnterOfKnownUserIsNotDuplicated(t *testing.T) {
	s, fake, rec := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")

	fake.Push("lobby", chattest.Enter(core.User{ID: 1, Name: "alice"}))
	s.CheckMessages(context.Background())

	if rec.Count("joined") != 0 {
		t.Fatalf("a member already present must not be announced again: %v", rec.Events())
	}
}

func TestDirectoryKeepsFirstRecord(t *testing.T) {
	s, fake, _ := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")
	first, _ := s.dir.ByName("alice")

	fake.Push("lobby", chattest.Leave(1), chattest.Enter(core.User{ID: 77, Name: "alice"}))
	s.CheckMessages(context.Background())

	if got, _ := s.dir.ByName("alice"); got != first || got.ID != 1 {
		t.Fatalf("directory replaced alice: %+v", got)
	}
}

func TestSessionsSharingDirectoryDoNotShareUsers(t *testing.T) {
	dir := core.NewDirectory()
	logger := zerolog.Nop()

	newSession := func(nick string) *Session {
		fake := chattest.New()
		a, c := *alice, *carol
		a.IdleSeconds = 42
		fake.AddRoom("lobby", "Main room", &a, &c)
		fake.AddRoom("garden", "Quiet corner", &core.User{ID: 3, Name: "dave"})

		s := NewSession(fake, dir, &chattest.Recorder{}, slowSync, nil, &logger)
		t.Cleanup(s.Stop)
		if err := s.LoginAnonymous(context.Background(), nick, core.GenderMale); err != nil {
			t.Fatalf("login %s: %v", nick, err)
		}
		return s
	}

	first := newSession("bob")
	mustJoin(t, first, "lobby")
	second := newSession("erin")
	mustJoin(t, second, "garden")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			first.CheckUsers(context.Background())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if u, ok := second.UserByName("alice"); !ok || u.ID != 1 {
				t.Errorf("alice not resolvable through the directory: %+v", u)
				return
			}
		}
	}()
	wg.Wait()

	if u, _ := first.UserByName("alice"); u.IdleSeconds != 42 {
		t.Fatalf("idle time not applied to the joined room: %+v", u)
	}
}

func TestUnknownSenderRaisesWarning(t *testing.T) {
	s, fake, rec := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")

	fake.Push("lobby", chattest.Chat(404, "who am i"))
	s.CheckMessages(context.Background())

	got := rec.Events()
	if len(got) != 1 || got[0] != "system lobby WARNING: Unknown UID: 404 -> who am i" {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestChatIndexAdvancesAcrossPollsAndSends(t *testing.T) {
	s, fake, _ := newTestSession(t, slowSync, nil)
	view := mustJoin(t, s, "lobby")
	ctx := context.Background()

	fake.Push("lobby", chattest.Chat(1, "one"))
	s.CheckMessages(ctx)
	if err := s.Say(ctx, "lobby", "two"); err != nil {
		t.Fatalf("say: %v", err)
	}
	s.CheckMessages(ctx)
	fake.Push("lobby", chattest.Chat(2, "three"))
	s.CheckMessages(ctx)

	assertIndexChain(t, fake.Calls(), view.Room.ID)
}

func TestSayWithUnchangedIndexFails(t *testing.T) {
	s, fake, rec := newTestSession(t, slowSync, nil)
	view := mustJoin(t, s, "lobby")
	ctx := context.Background()

	fake.Push("lobby", chattest.Chat(1, "hi"))
	s.CheckMessages(ctx)
	rec.Reset()

	fake.SetRateLimited("lobby", true)
	err := s.Say(ctx, "lobby", "too fast")
	if !errors.Is(err, core.ErrMessage) {
		t.Fatalf("expected message error, got %v", err)
	}
	if !strings.Contains(core.Reason(err), "10 seconds") {
		t.Fatalf("unexpected reason: %q", core.Reason(err))
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("rejected send must not produce events: %v", rec.Events())
	}

	fake.SetRateLimited("lobby", false)
	s.CheckMessages(ctx)
	assertIndexChain(t, fake.Calls(), view.Room.ID)
}

func TestSayResponseIsNotRedelivered(t *testing.T) {
	s, _, rec := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")
	ctx := context.Background()

	if err := s.Say(ctx, "lobby", "hello"); err != nil {
		t.Fatalf("say: %v", err)
	}
	if rec.Count("message") != 1 {
		t.Fatalf("expected the echo from the send response, got %v", rec.Events())
	}

	s.CheckMessages(ctx)
	if rec.Count("message") != 1 {
		t.Fatalf("poll re-delivered the sent message: %v", rec.Events())
	}
}

func TestSayToRoomNotJoined(t *testing.T) {
	s, _, _ := newTestSession(t, slowSync, nil)

	if err := s.Say(context.Background(), "lobby", "hi"); !errors.Is(err, core.ErrMessage) {
		t.Fatalf("expected message error, got %v", err)
	}
}

func TestKickedRoomIsRemovedOnce(t *testing.T) {
	s, fake, rec := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")
	ctx := context.Background()

	fake.SetKicked("lobby", true)
	s.CheckMessages(ctx)
	s.CheckMessages(ctx)

	if rec.Count("kicked") != 1 {
		t.Fatalf("expected exactly one kicked event, got %v", rec.Events())
	}
	if len(s.ActiveRoomNames()) != 0 {
		t.Fatalf("kicked room must be removed")
	}
	if err := s.Part(ctx, "lobby"); !errors.Is(err, core.ErrRoom) {
		t.Fatalf("expected room error for part after kick, got %v", err)
	}
}

func TestSendWhileKickedRaisesKicked(t *testing.T) {
	s, fake, rec := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")

	fake.SetKicked("lobby", true)
	err := s.Say(context.Background(), "lobby", "anyone?")
	if !errors.Is(err, core.ErrMessage) {
		t.Fatalf("expected message error, got %v", err)
	}
	if rec.Count("kicked") != 1 || len(s.ActiveRoomNames()) != 0 {
		t.Fatalf("expected kicked room removal, events %v", rec.Events())
	}
}

func TestPartRemovesRoom(t *testing.T) {
	s, fake, _ := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")

	if err := s.Part(context.Background(), "lobby"); err != nil {
		t.Fatalf("part: %v", err)
	}
	if len(s.ActiveRoomNames()) != 0 {
		t.Fatalf("room still active after part")
	}
	for _, name := range fake.Members("lobby") {
		if name == "bob" {
			t.Fatalf("backend still lists bob in the room")
		}
	}
}

func TestWhisperDeliveredOnlyFromFirstRoom(t *testing.T) {
	s, fake, rec := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")
	mustJoin(t, s, "garden")

	w := chattest.Whisper(1, "psst")
	fake.Push("garden", w)
	fake.Push("lobby", w)
	s.CheckMessages(context.Background())

	got := rec.Events()
	if len(got) != 1 || got[0] != "message lobby <alice> psst whisper=true" {
		t.Fatalf("expected one whisper via the first room, got %v", got)
	}
}

func TestOwnWhisperEchoIsSuppressed(t *testing.T) {
	s, fake, rec := newTestSession(t, slowSync, nil)
	view := mustJoin(t, s, "lobby")

	if err := s.Whisper(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("whisper: %v", err)
	}
	calls := fake.Calls()
	last := calls[len(calls)-1]
	if last.RoomID != view.Room.ID || last.Text != `/w "alice" secret` {
		t.Fatalf("unexpected send: %+v", last)
	}
	if rec.Count("message") != 0 {
		t.Fatalf("own whisper echo must not be delivered: %v", rec.Events())
	}
}

func TestWhisperWithoutRoomFails(t *testing.T) {
	s, _, _ := newTestSession(t, slowSync, nil)

	if err := s.Whisper(context.Background(), "alice", "hi"); !errors.Is(err, core.ErrMessage) {
		t.Fatalf("expected message error, got %v", err)
	}
}

func TestKickSendsDirective(t *testing.T) {
	s, fake, rec := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")

	if err := s.Kick(context.Background(), "lobby", "carol", "spam"); err != nil {
		t.Fatalf("kick: %v", err)
	}
	calls := fake.Calls()
	if calls[len(calls)-1].Text != "/kick carol spam" {
		t.Fatalf("unexpected kick text: %+v", calls[len(calls)-1])
	}
	if rec.Count("left") != 1 {
		t.Fatalf("expected carol to leave, got %v", rec.Events())
	}
}

func TestAdminHandoffReportsModes(t *testing.T) {
	s, fake, rec := newTestSession(t, slowSync, nil)
	mustJoin(t, s, "lobby")
	ctx := context.Background()

	fake.Push("lobby", chattest.AdminGranted("alice"))
	s.CheckMessages(ctx)
	if got := rec.Events(); len(got) != 1 || got[0] != "mode lobby +h alice" {
		t.Fatalf("unexpected events: %v", got)
	}
	rec.Reset()

	if err := s.Admin(ctx, "lobby", "carol"); err != nil {
		t.Fatalf("admin: %v", err)
	}
	want := "mode lobby +h carol\nmode lobby -h alice"
	if got := strings.Join(rec.Events(), "\n"); got != want {
		t.Fatalf("unexpected events:\n%s", got)
	}
	view, _ := s.ActiveRoom("lobby")
	if view.Room.OperatorID != carol.ID {
		t.Fatalf("operator not updated: %+v", view.Room)
	}
}

func TestConcurrentSaysDuringPollKeepIndexConsistent(t *testing.T) {
	s, fake, _ := newTestSession(t, slowSync, nil)
	view := mustJoin(t, s, "lobby")
	ctx := context.Background()

	fake.Push("lobby", chattest.Chat(1, "before"))
	entered, release := fake.GatePolls()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.CheckMessages(ctx)
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("poll did not start")
	}

	errs := make(chan error, 2)
	for _, text := range []string{"one", "two"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			errs <- s.Say(ctx, "lobby", text)
		}(text)
	}

	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("say: %v", err)
		}
	}

	s.CheckMessages(ctx)
	calls := fake.Calls()
	if len(calls) != 4 {
		t.Fatalf("expected poll, two sends and a poll, got %+v", calls)
	}
	if calls[0].Op != "poll" {
		t.Fatalf("sends must wait for the in-flight poll: %+v", calls)
	}
	assertIndexChain(t, calls, view.Room.ID)
}

func TestBackgroundLoopPollsAndStopsOnLogout(t *testing.T) {
	fast := config.SyncConfig{Tick: 5 * time.Millisecond, MessagesInterval: 5 * time.Millisecond, UsersInterval: time.Hour}
	s, fake, rec := newTestSession(t, fast, nil)
	mustJoin(t, s, "lobby")

	fake.Push("lobby", chattest.Chat(1, "are you there"))
	if !rec.WaitFor("message", 2*time.Second) {
		t.Fatalf("background poll did not deliver the message")
	}

	done := s.Done()
	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("polling loop still running after logout")
	}
	if s.LoggedIn() || fake.LoggedIn() {
		t.Fatalf("session still logged in")
	}
}

func TestFailedLogoutKeepsSession(t *testing.T) {
	s, fake, _ := newTestSession(t, slowSync, nil)
	fake.SetLogoutError(core.LogoutError("Logout failed!"))

	if err := s.Logout(context.Background()); !errors.Is(err, core.ErrLogout) {
		t.Fatalf("expected logout error, got %v", err)
	}
	if !s.LoggedIn() {
		t.Fatalf("session must stay logged in when logout is not confirmed")
	}
}

func TestLoginFailureLeavesSessionLoggedOut(t *testing.T) {
	fake := chattest.New()
	fake.SetLoginError(core.LoginError("Wrong password"))
	logger := zerolog.Nop()
	s := NewSession(fake, core.NewDirectory(), &chattest.Recorder{}, slowSync, nil, &logger)
	t.Cleanup(s.Stop)

	err := s.Login(context.Background(), "bob@example.com", "nope")
	if !errors.Is(err, core.ErrLogin) || core.Reason(err) != "Wrong password" {
		t.Fatalf("unexpected login error: %v", err)
	}
	if s.LoggedIn() || s.Done() != nil {
		t.Fatalf("failed login must not start polling")
	}
}
