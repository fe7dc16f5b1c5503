package abort

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pboueke/pipa/internal/testutil"
)

func TestFlag(t *testing.T) {
	var f Flag
	testutil.AssertEqual(t, f.Requested(), false)
	f.Set()
	testutil.AssertEqual(t, f.Requested(), true)
}

func TestAny(t *testing.T) {
	var a, b Flag
	src := Any(&a, nil, &b, Never)
	testutil.AssertEqual(t, src.Requested(), false)

	b.Set()
	testutil.AssertEqual(t, src.Requested(), true)
	testutil.AssertEqual(t, Any().Requested(), false)
}

func TestKeypress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"lower x", "abc x", true},
		{"upper X", "X\n", true},
		{"no key", "hello\n", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := WatchKeys(strings.NewReader(tt.input))
			<-k.Done()
			testutil.AssertEqual(t, k.Requested(), tt.want)
		})
	}
}

func TestKeypressWaitsForInput(t *testing.T) {
	pr, pw := io.Pipe()
	k := WatchKeys(pr)

	testutil.AssertEqual(t, k.Requested(), false)
	_, err := pw.Write([]byte("x"))
	testutil.AssertNoError(t, err)

	<-k.Done()
	testutil.AssertEqual(t, k.Requested(), true)
	pw.Close()
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mini
}

func TestRedis(t *testing.T) {
	client, mini := newTestRedis(t)
	src := NewRedis(client, "pipa:abort:test")
	ctx := context.Background()

	testutil.AssertEqual(t, src.Key(), "pipa:abort:test")
	testutil.AssertEqual(t, src.Requested(), false)
	testutil.AssertNoError(t, src.Err())

	testutil.AssertNoError(t, src.Request(ctx, time.Minute))
	testutil.AssertEqual(t, mini.Exists("pipa:abort:test"), true)
	testutil.AssertEqual(t, src.Requested(), true)

	// Once triggered the source stays requested.
	testutil.AssertNoError(t, src.Clear(ctx))
	testutil.AssertEqual(t, src.Requested(), true)
	testutil.AssertEqual(t, mini.Exists("pipa:abort:test"), false)
}

func TestRedisConnectionError(t *testing.T) {
	client, mini := newTestRedis(t)
	mini.Close()

	src := NewRedis(client, "pipa:abort:test")
	testutil.AssertEqual(t, src.Requested(), false)
	testutil.AssertError(t, src.Err())
}
