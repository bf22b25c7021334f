package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/logger"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logger.Nop())
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()
	t.Cleanup(func() {
		hub.Stop()
		<-done
	})
	return hub
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case f, ok := <-c.Events():
		if !ok {
			t.Fatal("client closed")
		}
		return string(f)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return ""
	}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case f := <-c.Events():
		t.Fatalf("unexpected frame %q", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_FansOutByTopic(t *testing.T) {
	hub := startHub(t)
	all := NewClient("all", AllRuns, 8)
	one := NewClient("one", RunTopic("run-a"), 8)
	hub.Register(all)
	hub.Register(one)

	hub.Publish(Event{Name: EventTask, Topic: RunTopic("run-b"), Data: TaskData{RunID: "run-b", TaskID: "bronze"}})
	hub.Publish(Event{Name: EventRun, Topic: RunTopic("run-a"), Data: RunData{RunID: "run-a", Status: dag.RunSucceeded}})

	if f := receive(t, all); !strings.Contains(f, "event: task\n") || !strings.Contains(f, `"task_id":"bronze"`) {
		t.Errorf("first frame for all = %q", f)
	}
	if f := receive(t, all); !strings.Contains(f, "event: run\n") {
		t.Errorf("second frame for all = %q", f)
	}
	f := receive(t, one)
	if !strings.HasPrefix(f, "id: 2\n") || !strings.Contains(f, `"status":"SUCCEEDED"`) {
		t.Errorf("frame for run-a = %q", f)
	}
	assertEmpty(t, one)
	if hub.ClientCount() != 2 {
		t.Errorf("client count = %d", hub.ClientCount())
	}
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := startHub(t)
	slow := NewClient("slow", AllRuns, 1)
	fast := NewClient("fast", AllRuns, 8)
	hub.Register(slow)
	hub.Register(fast)

	for i := 0; i < 3; i++ {
		hub.Publish(Event{Name: EventTask, Topic: RunTopic("r"), Data: TaskData{Attempts: i}})
	}
	for i := 0; i < 3; i++ {
		receive(t, fast)
	}
	receive(t, slow)
	assertEmpty(t, slow)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(logger.Nop())
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()
	c := NewClient("c", AllRuns, 1)
	hub.Register(c)
	hub.Stop()
	hub.Stop()
	<-done

	if _, ok := <-c.Events(); ok {
		t.Error("client channel still open")
	}
	if hub.Register(NewClient("late", AllRuns, 1)) {
		t.Error("register succeeded after stop")
	}
	hub.Unregister(c)
	hub.Publish(Event{Name: EventRun, Topic: RunTopic("r"), Data: RunData{}})
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestRunStream_PublishesTaskAndRunEvents(t *testing.T) {
	reg := dag.NewRegistry()
	reg.MustRegister(dag.TaskSpec{ID: "bronze", Run: func(context.Context) (dag.Outcome, error) {
		return dag.Succeeded(""), nil
	}})
	reg.MustRegister(dag.TaskSpec{ID: "silver", DependsOn: []string{"bronze"}, Run: func(context.Context) (dag.Outcome, error) {
		return dag.Failed("model error"), nil
	}})
	if err := reg.Finalize(); err != nil {
		t.Fatal(err)
	}
	plan, err := dag.BuildPlan(reg)
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	engine := dag.NewEngine(dag.WithLogger(logger.Nop()), dag.WithObserver(NewRunStream(rec)))
	run, err := engine.Execute(context.Background(), plan, reg, dag.NewRun("p", time.Now()))
	if err != nil {
		t.Fatal(err)
	}

	if len(rec.events) != 3 {
		t.Fatalf("events = %+v", rec.events)
	}
	for _, ev := range rec.events {
		if ev.Topic != RunTopic(run.ID) {
			t.Errorf("topic = %q", ev.Topic)
		}
	}
	silver := rec.events[1].Data.(TaskData)
	if rec.events[1].Name != EventTask || silver.TaskID != "silver" || silver.State != dag.StateFailure {
		t.Errorf("second event = %+v", rec.events[1])
	}
	last := rec.events[2].Data.(RunData)
	if rec.events[2].Name != EventRun || last.Status != dag.RunFailed || last.FailedTask != "silver" {
		t.Errorf("run event = %+v", last)
	}
}

func newStreamServer(t *testing.T, hub *Hub, cfg Config) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/events", Handler(hub, cfg))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// readFrame reads lines up to the blank line ending a frame.
func readFrame(t *testing.T, br *bufio.Reader) string {
	t.Helper()
	type result struct {
		frame string
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		var sb strings.Builder
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				ch <- result{sb.String(), err}
				return
			}
			if line == "\n" {
				ch <- result{sb.String(), nil}
				return
			}
			sb.WriteString(line)
		}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("read: %v (partial %q)", r.err, r.frame)
		}
		return r.frame
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return ""
	}
}

func TestHandler_StreamsOneRun(t *testing.T) {
	hub := startHub(t)
	srv := newStreamServer(t, hub, Config{KeepAlive: time.Hour})

	resp, err := http.Get(srv.URL + "/events?run_id=run-a")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	br := bufio.NewReader(resp.Body)

	hello := readFrame(t, br)
	if !strings.HasPrefix(hello, "event: connected\n") {
		t.Fatalf("first frame = %q", hello)
	}
	var connected ConnectedData
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.Split(hello, "\n")[1], "data: ")), &connected); err != nil {
		t.Fatal(err)
	}
	if connected.Topic != "run:run-a" || connected.ClientID == "" {
		t.Errorf("connected = %+v", connected)
	}

	hub.Publish(Event{Name: EventTask, Topic: RunTopic("run-b"), Data: TaskData{RunID: "run-b"}})
	hub.Publish(Event{Name: EventTask, Topic: RunTopic("run-a"), Data: TaskData{RunID: "run-a", TaskID: "gold"}})
	f := readFrame(t, br)
	if !strings.Contains(f, `"run_id":"run-a"`) || !strings.Contains(f, `"task_id":"gold"`) {
		t.Errorf("frame = %q", f)
	}
}

func TestHandler_KeepAlive(t *testing.T) {
	hub := startHub(t)
	srv := newStreamServer(t, hub, Config{KeepAlive: 20 * time.Millisecond})
	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	br := bufio.NewReader(resp.Body)
	readFrame(t, br)
	if f := readFrame(t, br); !strings.HasPrefix(f, ": keepalive ") {
		t.Errorf("frame = %q", f)
	}
}

func TestHandler_Rejections(t *testing.T) {
	hub := startHub(t)
	hub.Register(NewClient("existing", AllRuns, 1))
	srv := newStreamServer(t, hub, Config{MaxClients: 1})

	tests := []struct {
		query string
		want  int
	}{
		{"?run_id=run-*", http.StatusBadRequest},
		{"", http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + "/events" + tt.query)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("GET /events%s = %d, want %d", tt.query, resp.StatusCode, tt.want)
		}
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	c := NewComponent(Config{Enabled: true}, logger.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	client := NewClient("c", AllRuns, 1)
	c.Hub().Register(client)
	if h := c.Health(context.Background()); h.Message != "1 clients connected" {
		t.Errorf("health = %+v", h)
	}
	if d := c.Describe(); d.Type != "sse" || !strings.Contains(d.Details, "keepalive=30s") {
		t.Errorf("describe = %+v", d)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-client.Events(); ok {
		t.Error("client not closed on stop")
	}
}
