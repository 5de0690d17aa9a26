package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, state State, chunks ...[]byte) ([]Outcome, State) {
	t.Helper()
	var outcomes []Outcome
	for _, chunk := range chunks {
		p := chunk
		for {
			out := Parse(state, p)
			require.NoError(t, out.Err)
			if !out.Done {
				state = out.State
				break
			}
			outcomes = append(outcomes, out)
			state = out.State
			if len(out.Leftover) == 0 {
				break
			}
			p = out.Leftover
		}
	}
	return outcomes, state
}

func TestSimpleString(t *testing.T) {
	out, _ := decodeAll(t, State{}, []byte("+PONG\r\n"))
	require.Len(t, out, 1)
	assert.Equal(t, SimpleString, out[0].Value.Type)
	assert.Equal(t, "PONG", out[0].Value.String())
	assert.Equal(t, OK, out[0].Code)
}

func TestErrorReply(t *testing.T) {
	out, _ := decodeAll(t, State{}, []byte("-ERR unknown command 'INVALID'\r\n"))
	require.Len(t, out, 1)
	assert.Equal(t, Error, out[0].Value.Type)
	assert.Equal(t, Err, out[0].Code)
	assert.Equal(t, "ERR unknown command 'INVALID'", out[0].Value.String())
}

func TestInteger(t *testing.T) {
	out, _ := decodeAll(t, State{}, []byte(":12345\r\n"))
	require.Len(t, out, 1)
	assert.Equal(t, Integer, out[0].Value.Type)
	assert.EqualValues(t, 12345, out[0].Value.Int)

	out, _ = decodeAll(t, State{}, []byte(":-7\r\n"))
	require.Len(t, out, 1)
	assert.EqualValues(t, -7, out[0].Value.Int)
}

func TestBulkString(t *testing.T) {
	out, _ := decodeAll(t, State{}, []byte("$5\r\nhello\r\n"))
	require.Len(t, out, 1)
	assert.Equal(t, BulkString, out[0].Value.Type)
	assert.Equal(t, "hello", out[0].Value.String())
}

func TestEmptyBulkString(t *testing.T) {
	out, _ := decodeAll(t, State{}, []byte("$0\r\n\r\n"))
	require.Len(t, out, 1)
	assert.Equal(t, BulkString, out[0].Value.Type)
	assert.Equal(t, "", out[0].Value.String())
}

func TestNilBulkString(t *testing.T) {
	out, _ := decodeAll(t, State{}, []byte("$-1\r\n"))
	require.Len(t, out, 1)
	assert.Equal(t, Nil, out[0].Value.Type)
}

func TestNilArray(t *testing.T) {
	out, _ := decodeAll(t, State{}, []byte("*-1\r\n"))
	require.Len(t, out, 1)
	assert.Equal(t, NilArray, out[0].Value.Type)
}

func TestEmptyArray(t *testing.T) {
	out, _ := decodeAll(t, State{}, []byte("*0\r\n"))
	require.Len(t, out, 1)
	assert.Equal(t, Array, out[0].Value.Type)
	assert.Empty(t, out[0].Value.Array)
}

func TestArrayOfBulkStrings(t *testing.T) {
	out, _ := decodeAll(t, State{}, []byte("*2\r\n$9\r\n127.0.0.1\r\n$4\r\n6380\r\n"))
	require.Len(t, out, 1)
	v := out[0].Value
	require.Equal(t, Array, v.Type)
	require.Len(t, v.Array, 2)
	assert.Equal(t, "127.0.0.1", v.Array[0].String())
	assert.Equal(t, "6380", v.Array[1].String())
}

func TestFragmentedBulkString(t *testing.T) {
	out, _ := decodeAll(t, State{}, []byte("$5\r\nhel"), []byte("lo\r\n"))
	require.Len(t, out, 1)
	assert.Equal(t, BulkString, out[0].Value.Type)
	assert.Equal(t, "hello", out[0].Value.String())
}

func TestFragmentedAtEveryByte(t *testing.T) {
	whole := []byte("*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n")
	state := State{}
	var values []Value
	for i := 0; i < len(whole); i++ {
		out := Parse(state, whole[i:i+1])
		require.NoError(t, out.Err)
		state = out.State
		if out.Done {
			values = append(values, out.Value)
			require.Empty(t, out.Leftover)
		}
	}
	require.Len(t, values, 1)
	require.Len(t, values[0].Array, 2)
	assert.Equal(t, "foo", values[0].Array[0].String())
	assert.Equal(t, "bar", values[0].Array[1].String())
}

func TestSplitInvariant(t *testing.T) {
	whole := []byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
	wholeOut, _ := decodeAll(t, State{}, whole)

	for split := 0; split < len(whole); split++ {
		splitOut, _ := decodeAll(t, State{}, whole[:split], whole[split:])
		require.Len(t, splitOut, 1, "split at %d", split)
		assert.Equal(t, wholeOut[0].Code, splitOut[0].Code, "split at %d", split)
		assert.Equal(t, wholeOut[0].Value, splitOut[0].Value, "split at %d", split)
	}
}

func TestEmptyFragmentIsNoop(t *testing.T) {
	out := Parse(State{}, nil)
	assert.False(t, out.Done)
	assert.Equal(t, State{}, out.State)
}

func TestLeftoverAcrossTwoValues(t *testing.T) {
	out := Parse(State{}, []byte("+OK\r\n+ALSO\r\n"))
	require.True(t, out.Done)
	assert.Equal(t, "OK", out.Value.String())
	assert.Equal(t, []byte("+ALSO\r\n"), out.Leftover)

	out2 := Parse(out.State, out.Leftover)
	require.True(t, out2.Done)
	assert.Equal(t, "ALSO", out2.Value.String())
	assert.Empty(t, out2.Leftover)
}

func TestUnknownTagIsProtocolError(t *testing.T) {
	out := Parse(State{}, []byte("?garbage\r\n"))
	require.Error(t, out.Err)
}

func TestEncodeCommandStrings(t *testing.T) {
	got := EncodeCommandStrings("SET", "k", "v")
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n", string(got))
}
