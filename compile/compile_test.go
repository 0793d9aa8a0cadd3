package compile

import (
	"testing"

	"github.com/rhizomegfx/framegraph/analyze"
	"github.com/rhizomegfx/framegraph/internal/arena"
	"github.com/rhizomegfx/framegraph/pass"
	"github.com/rhizomegfx/framegraph/usage"
)

func newPass(id uint32, name, queue string) *pass.Record {
	return pass.NewCPU(id, name, queue, nil, func() error { return nil })
}

func TestCompileGroupsByQueue(t *testing.T) {
	p1 := newPass(1, "a", "graphics")
	p2 := newPass(2, "b", "graphics")
	p3 := newPass(3, "c", "compute")

	info := Compile([]*pass.Record{p1, p2, p3}, nil, arena.New[ResourceCommand]("test"))
	if len(info.Groups) != 2 {
		t.Fatalf("expected 2 encoder groups, got %d", len(info.Groups))
	}
	if len(info.Groups[0].Passes) != 2 || len(info.Groups[1].Passes) != 1 {
		t.Fatalf("unexpected group sizes: %+v", info.Groups)
	}
}

func TestCompileLowersBarrierEdge(t *testing.T) {
	p1 := newPass(1, "write", "graphics")
	p2 := newPass(2, "read", "graphics")

	edge := analyze.Edge{
		Kind:      analyze.Barrier,
		From:      usage.Record{Pass: usage.PassRef{ID: 1}, Access: usage.Write},
		To:        usage.Record{Pass: usage.PassRef{ID: 2}, Access: usage.Read},
		FromQueue: "graphics",
		ToQueue:   "graphics",
	}

	info := Compile([]*pass.Record{p1, p2}, []analyze.Edge{edge}, arena.New[ResourceCommand]("test"))
	if len(info.Commands) != 1 || info.Commands[0].Op != OpPipelineBarrier {
		t.Fatalf("expected one pipeline barrier command, got %+v", info.Commands)
	}
	if len(info.Groups[0].Before) != 1 {
		t.Fatalf("expected the barrier attached to the gated group, got %+v", info.Groups[0])
	}
}

func TestCompileLowersCrossQueueEdgeToSignalWait(t *testing.T) {
	p1 := newPass(1, "produce", "compute")
	p2 := newPass(2, "consume", "graphics")

	edge := analyze.Edge{
		Kind:      analyze.CrossQueueSignalWait,
		From:      usage.Record{Pass: usage.PassRef{ID: 1}, Access: usage.Write},
		To:        usage.Record{Pass: usage.PassRef{ID: 2}, Access: usage.Read},
		FromQueue: "compute",
		ToQueue:   "graphics",
	}

	info := Compile([]*pass.Record{p1, p2}, []analyze.Edge{edge}, arena.New[ResourceCommand]("test"))
	if len(info.Commands) != 1 || info.Commands[0].Op != OpWaitForEvents {
		t.Fatalf("expected one wait-for-events command, got %+v", info.Commands)
	}
	if len(info.Commands[0].WaitOn) != 1 || info.Commands[0].WaitOn[0].Op != OpSignalEvent {
		t.Fatalf("expected a nested signal event, got %+v", info.Commands[0])
	}
}

func TestCompileIgnoresMaterializeAndFusedEdges(t *testing.T) {
	p1 := newPass(1, "a", "graphics")
	edges := []analyze.Edge{
		{Kind: analyze.Materialize, To: usage.Record{Pass: usage.PassRef{ID: 1}}},
		{Kind: analyze.Fused, From: usage.Record{Pass: usage.PassRef{ID: 1}}, To: usage.Record{Pass: usage.PassRef{ID: 1}}},
	}
	info := Compile([]*pass.Record{p1}, edges, arena.New[ResourceCommand]("test"))
	if len(info.Commands) != 0 {
		t.Fatalf("expected no resource commands for Materialize/Fused edges, got %+v", info.Commands)
	}
}
