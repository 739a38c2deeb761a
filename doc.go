// Package scenelink links a visual scene editor to the running scene it edits.
//
// The editor host and the runtime talk over a [Bridge]. Every rendered
// element carries the source position it was authored at (see the
// instrument package), so a click in the viewport resolves to a
// {path, line, column} [Identity] and a confirmed drag turns into exactly one
// source edit request.
//
// # Quick start
//
//	hostCh, runtimeCh := scenelink.NewPipe()
//	runtime := scenelink.NewBridge(runtimeCh)
//	scene := scenelink.NewScene()
//	scene.SetBridge(runtime)
//	unsubscribe := scenelink.RegisterRuntimeHandlers(runtime, scene)
//	defer unsubscribe()
//	go runtime.Run(ctx)
//
//	host := scenelink.NewBridge(hostCh)
//	go host.Run(ctx)
//
// Call [Scene.Update] once per frame. Bridge handlers run on their own
// goroutine and hand scene work to the frame goroutine with [Scene.Post].
//
// # Scene graph
//
// Every element is a [Node]. The render host wraps each authored element in
// a carrier node ([NewCarrier]) holding its [CarrierMeta]; the element's
// rendered object is the carrier's first non-carrier child.
//
// # Overrides
//
// The [OverrideStore] keeps two layers per element on top of the rendered
// source props: intermediate edits, dropped when their file hot-reloads, and
// persisted edits, which survive until the element disappears from the file.
//
// # Selection and confirmation
//
// [Scene.Pick] and [Scene.PickAt] resolve a rendered object to the element
// that owns it in the open file, choose the transform target and decide
// whether values are written in world or local space. [Scene.BeginDrag],
// [Scene.DragTranslate] and [Scene.EndDrag] move the target locally and
// confirm the result with one element-set-prop notification.
//
// # Automated testing
//
// [Scene.InjectClick], [Scene.InjectDrag] and [Scene.InjectKey] queue input
// consumed one event per frame. [LoadTestScript] drives the same queue from
// a JSON script.
package scenelink
