// Package lab runs dronescript programs against farm levels.
//
// A Lab owns one level and at most one active Session. Starting a run
// cancels the previous session and waits for it to stop before a fresh
// world is built from the level, so runs never share state. Every outcome
// lands in the Lab's append-only Log, and a failed run asks the configured
// Advisor for one piece of advice.
//
//	l, err := lab.New(lab.Config{Level: level, Pacing: time.Second})
//	if err != nil {
//		return err
//	}
//	session, err := l.Run(ctx, source)
//	if err != nil {
//		return err // compile error, already logged
//	}
//	outcome := session.Wait()
package lab
