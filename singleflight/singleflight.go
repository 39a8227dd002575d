package singleflight

import "sync"

// call represents an in-flight or completed invocation of fn.
type call struct {
	wg  sync.WaitGroup
	val interface{}
	err error
}

// Group suppresses duplicate calls: concurrent Do invocations with the
// same key share a single execution of fn.
type Group struct {
	calls sync.Map // key -> *call
}

// Do runs fn once per key at a time; callers arriving while a call for
// key is in flight wait for it and reuse its result.
func (g *Group) Do(key string, fn func() (interface{}, error)) (interface{}, error) {
	c := &call{}
	c.wg.Add(1)
	if v, loaded := g.calls.LoadOrStore(key, c); loaded {
		prev := v.(*call)
		prev.wg.Wait()
		return prev.val, prev.err
	}

	c.val, c.err = fn()
	c.wg.Done()

	// Forget the call so later misses load fresh data.
	g.calls.Delete(key)

	return c.val, c.err
}
