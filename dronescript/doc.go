// Package dronescript compiles and runs the indentation based drone
// language used by the farm lessons.
//
// Source text goes through a fixed pipeline with no side effects: Scan
// splits it into logical lines, each line is classified into a Statement,
// the statements are nested into blocks by indentation, expressions are
// translated into an evaluable tree, and finally every call is resolved to
// a drone effect, a pure builtin or a user function. The result is a
// Program. Program.Run then interprets it against a Drone, pacing every
// effectful call and stopping promptly when its context is cancelled.
//
//	engine := dronescript.MustNewEngine(dronescript.Config{})
//	program, err := engine.Compile(src)
//	if err != nil {
//		// *SyntaxError: nothing has run yet.
//	}
//	result := program.Run(ctx, dronescript.RunOptions{Drone: world, Pacing: 300 * time.Millisecond})
package dronescript
