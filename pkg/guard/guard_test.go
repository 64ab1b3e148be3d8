package guard_test

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guard/pkg/guard"
)

func TestDo_Success(t *testing.T) {
	res := guard.Do(func() (int, error) { return 42, nil })

	assert.True(t, res.Ok)
	assert.Equal(t, 42, res.Data)
	assert.Nil(t, res.Err)
}

func TestDo_ReturnedError(t *testing.T) {
	boom := errors.New("boom")
	res := guard.Do(func() (int, error) { return 7, boom })

	require.False(t, res.Ok)
	assert.Zero(t, res.Data, "failure arm must not carry data")
	assert.Equal(t, "boom", res.Err.Message())
	assert.Equal(t, guard.CodeUnknown, res.Err.Code())
	assert.Same(t, boom, res.Err.Cause())
}

func TestDo_Panics(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		message string
		code    guard.Code
	}{
		{"error value", errors.New("boom"), "boom", guard.CodeUnknown},
		{"guard error", guard.CreateError("bad", guard.WithCode(guard.CodeValidation)), "bad", guard.CodeValidation},
		{"string", "boom", "Unknown error", guard.CodeUnknown},
		{"int", 13, "Unknown error", guard.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res guard.Result[int]
			require.NotPanics(t, func() {
				res = guard.Do(func() (int, error) { panic(tt.value) })
			})

			require.False(t, res.Ok)
			assert.Equal(t, tt.message, res.Err.Message())
			assert.Equal(t, tt.code, res.Err.Code())
		})
	}
}

func TestDo_PanicWithGuardErrorKeepsIdentity(t *testing.T) {
	orig := guard.CreateError("bad", guard.WithCode(guard.CodeValidation))
	res := guard.Do(func() (string, error) { panic(orig) })

	require.False(t, res.Ok)
	assert.Same(t, orig, res.Err)
}

func TestDo_RuntimePanic(t *testing.T) {
	res := guard.Do(func() (int, error) {
		var m map[string]int
		m["x"] = 1
		return 0, nil
	})

	require.False(t, res.Ok)
	assert.Contains(t, res.Err.Message(), "nil map")
	assert.Equal(t, guard.CodeUnknown, res.Err.Code())
}

func TestRun_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	res := guard.Run(ctx, func(ctx context.Context) (string, error) {
		return ctx.Value(key{}).(string), nil
	})
	assert.True(t, res.Ok)
	assert.Equal(t, "v", res.Data)
}

func TestRun_DoesNotCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := guard.Run(ctx, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	assert.True(t, res.Ok, "a canceled context is the body's concern")
}

func TestExec(t *testing.T) {
	assert.True(t, guard.Exec(func() error { return nil }).Ok)

	res := guard.Exec(func() error { return errors.New("nope") })
	require.False(t, res.Ok)
	assert.Equal(t, "nope", res.Err.Message())
}

func TestAsync(t *testing.T) {
	ch := guard.Async(func() (int, error) {
		time.Sleep(5 * time.Millisecond)
		return 0, guard.CreateError("bad", guard.WithCode(guard.CodeValidation))
	})

	res := <-ch
	require.False(t, res.Ok)
	assert.Equal(t, guard.CodeValidation, res.Err.Code())
	assert.Equal(t, "bad", res.Err.Message())

	_, open := <-ch
	assert.False(t, open, "channel must be closed after the single result")
}

func TestAwait_AsyncSuccess(t *testing.T) {
	res := guard.Await(func() *guard.Future[int] {
		return guard.Go(func() (int, error) {
			time.Sleep(5 * time.Millisecond)
			return 42, nil
		})
	})

	assert.True(t, res.Ok)
	assert.Equal(t, 42, res.Data)
}

func TestAwait_MixedBodies(t *testing.T) {
	tests := []struct {
		name    string
		fn      func() *guard.Future[int]
		ok      bool
		data    int
		message string
		code    guard.Code
	}{
		{
			name: "already resolved",
			fn:   func() *guard.Future[int] { return guard.Resolved(42) },
			ok:   true, data: 42,
		},
		{
			name:    "throws before producing a future",
			fn:      func() *guard.Future[int] { panic(errors.New("sync boom")) },
			message: "sync boom", code: guard.CodeUnknown,
		},
		{
			name:    "nil future",
			fn:      func() *guard.Future[int] { return nil },
			message: "Unknown error", code: guard.CodeUnknown,
		},
		{
			name:    "rejected with a string",
			fn:      func() *guard.Future[int] { return guard.Rejected[int]("boom") },
			message: "Unknown error", code: guard.CodeUnknown,
		},
		{
			name: "async guard error",
			fn: func() *guard.Future[int] {
				return guard.Go(func() (int, error) {
					return 0, guard.CreateError("bad", guard.WithCode(guard.CodeValidation))
				})
			},
			message: "bad", code: guard.CodeValidation,
		},
		{
			name: "async panic",
			fn: func() *guard.Future[int] {
				return guard.Go(func() (int, error) { panic("late") })
			},
			message: "Unknown error", code: guard.CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := guard.Await(tt.fn)

			require.Equal(t, tt.ok, res.Ok)
			if tt.ok {
				assert.Equal(t, tt.data, res.Data)
				return
			}
			assert.Equal(t, tt.message, res.Err.Message())
			assert.Equal(t, tt.code, res.Err.Code())
		})
	}
}

func TestFuture_NotObservableBeforeSettlement(t *testing.T) {
	f, resolve, reject := guard.NewPromise[string]()

	select {
	case <-f.Done():
		t.Fatal("future settled before resolve was called")
	default:
	}

	got := make(chan guard.Result[string], 1)
	go func() {
		got <- guard.Await(func() *guard.Future[string] { return f })
	}()

	select {
	case <-got:
		t.Fatal("result observed before settlement")
	case <-time.After(20 * time.Millisecond):
	}

	resolve("done")
	reject("ignored")

	res := <-got
	assert.True(t, res.Ok)
	assert.Equal(t, "done", res.Data)
	assert.Equal(t, res, f.Result())
}

func TestFuture_ZeroValueIsRejected(t *testing.T) {
	var f guard.Future[int]

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("zero future never settled")
	}

	_, err := f.Await()
	require.Error(t, err)
	assert.Equal(t, guard.FallbackMessage, err.Error())

	got := make(chan guard.Result[int], 1)
	go func() {
		got <- guard.Await(func() *guard.Future[int] { return &guard.Future[int]{} })
	}()

	select {
	case res := <-got:
		require.False(t, res.Ok)
		assert.Equal(t, guard.FallbackMessage, res.Err.Message())
		assert.Equal(t, guard.CodeUnknown, res.Err.Code())
	case <-time.After(time.Second):
		t.Fatal("Await on a zero future never returned")
	}
}

func TestFuture_RejectWithGuardError(t *testing.T) {
	f, _, reject := guard.NewPromise[int]()
	orig := guard.CreateError("expired", guard.WithCode(guard.CodeUnauthorized))
	reject(orig)

	_, err := f.Await()
	require.Error(t, err)

	var ge *guard.Error
	require.True(t, errors.As(err, &ge))
	assert.Same(t, orig, ge)
}

func TestDo_ConcurrentCallsAreIsolated(t *testing.T) {
	const n = 64

	var wg sync.WaitGroup
	results := make([]guard.Result[int], n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = guard.Do(func() (int, error) {
				if i%2 == 0 {
					return 0, fmt.Errorf("failure %d", i)
				}
				panic(guard.CreateError(fmt.Sprintf("panic %d", i), guard.WithMetaKV("i", i)))
			})
		}(i)
	}
	wg.Wait()

	seen := make(map[*guard.Error]int, n)
	for i, res := range results {
		require.False(t, res.Ok)
		if prev, dup := seen[res.Err]; dup {
			t.Fatalf("results %d and %d share an error instance", prev, i)
		}
		seen[res.Err] = i

		if i%2 == 0 {
			assert.Equal(t, fmt.Sprintf("failure %d", i), res.Err.Message())
		} else {
			assert.Equal(t, fmt.Sprintf("panic %d", i), res.Err.Message())
			assert.Equal(t, i, res.Err.Meta()["i"])
		}
	}
}

func TestResult_Accessors(t *testing.T) {
	ok := guard.Success(5)
	v, err := ok.Get()
	assert.Equal(t, 5, v)
	assert.NoError(t, err)
	assert.Equal(t, 5, ok.Must())
	assert.Equal(t, 5, ok.OrElse(9))

	fail := guard.Failure[int](guard.New("x"))
	v, err = fail.Get()
	assert.Zero(t, v)
	assert.EqualError(t, err, "x")
	assert.Equal(t, 9, fail.OrElse(9))
	assert.Panics(t, func() { fail.Must() })

	doubled := guard.Map(ok, func(v int) string { return fmt.Sprint(v * 2) })
	assert.Equal(t, guard.Success("10"), doubled)

	mappedFail := guard.Map(fail, func(v int) string { return "unused" })
	assert.False(t, mappedFail.Ok)
	assert.Same(t, fail.Err, mappedFail.Err)
}

func TestResult_ZeroValueIsFailure(t *testing.T) {
	var res guard.Result[int]

	v, err := res.Get()
	assert.Zero(t, v)
	require.Error(t, err)
	assert.EqualError(t, err, guard.FallbackMessage)

	var ge *guard.Error
	require.True(t, errors.As(err, &ge))
	require.NotNil(t, ge)
	assert.Equal(t, guard.CodeUnknown, ge.Code())

	recovered := func() (v any) {
		defer func() { v = recover() }()
		res.Must()
		return nil
	}()
	pe, ok := recovered.(*guard.Error)
	require.True(t, ok)
	require.NotNil(t, pe)
	assert.Equal(t, guard.FallbackMessage, pe.Message())

	data, err := stdjson.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"error":{"name":"GuardError","message":"Unknown error","code":"UNKNOWN"}}`, string(data))
}

func TestDo_TypedNilGuardErrorIsFailure(t *testing.T) {
	res := guard.Do(func() (int, error) {
		var ge *guard.Error
		return 1, ge
	})

	require.False(t, res.Ok)
	assert.Equal(t, guard.FallbackMessage, res.Err.Message())
	assert.Equal(t, guard.CodeUnknown, res.Err.Code())
}

func TestFailure_NilErrorKeepsInvariant(t *testing.T) {
	res := guard.Failure[int](nil)
	require.False(t, res.Ok)
	require.NotNil(t, res.Err)
	assert.Equal(t, guard.FallbackMessage, res.Err.Message())
}

func TestResult_MarshalJSON(t *testing.T) {
	data, err := stdjson.Marshal(guard.Success(42))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"data":42}`, string(data))

	data, err = stdjson.Marshal(guard.Success(0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"data":0}`, string(data))

	res := guard.Do(func() (int, error) {
		return 0, guard.CreateError("bad", guard.WithCode(guard.CodeValidation), guard.WithCause(errors.New("hidden")))
	})
	data, err = stdjson.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"error":{"name":"GuardError","message":"bad","code":"VALIDATION"}}`, string(data))
}
