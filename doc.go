// Package framegraph assembles a complete GPU frame graph on top of the
// handle/registry/resource/pass/usage/analyze/compile/exec/upload/argbuf
// packages: it opens a HAL device and a set of logical queues, then lets a
// caller declare one frame's passes and resource usages, compile the
// dependency graph, and execute it.
//
// A typical frame looks like:
//
//	g, err := framegraph.Open(framegraph.Config{
//		Device: dev,
//		Queues: map[string]hal.Queue{"graphics": queue},
//	})
//	color := g.AllocateTexture(types.TextureDescriptor{Size: size, Format: format}, 0)
//	f := g.BeginFrame()
//	draw := f.AddDraw("opaque", "graphics", nil, func(enc *pass.DrawEncoder) error {
//		enc.Draw(3, 1, 0, 0)
//		return nil
//	})
//	err = f.Use(draw, color.Handle, usage.WriteOnlyRenderTarget, usage.StageFragment)
//	err = f.Submit()
//
// This mirrors the shape of the teacher's top-level wgpu package (Instance
// -> Adapter -> Device -> Queue), but the object graph it assembles is the
// frame-graph core rather than a WebGPU object model: Graph stands in for
// the Instance/Adapter/Device chain, and Frame stands in for one
// CommandEncoder's worth of recorded work, expanded to the frame graph's
// declare/compile/execute pipeline.
package framegraph
