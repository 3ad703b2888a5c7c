package core

// Recorder is the drawing surface a layer sees during OnRender.
type Recorder interface {
	// DrawTriangle records the placeholder triangle into the open render pass.
	DrawTriangle()
}

// Layer is a unit of application behavior driven by the engine loop. All
// callbacks run on the loop thread, in the order layers were pushed.
type Layer interface {
	// OnReady is called once, before the window and graphics context exist.
	OnReady()
	// OnUpdate is called once per window event with the raw elapsed time.
	OnUpdate(dt DeltaTime)
	// OnPhysicsUpdate is called once per fixed physics step.
	OnPhysicsUpdate(dt DeltaTime)
	// OnRender records draw commands. Called only while command buffers are built.
	OnRender(r Recorder)
	// OnEvent receives forwarded input and resize events.
	OnEvent(evt Event)
	// OnClose is called once when the window is closing.
	OnClose()
}
