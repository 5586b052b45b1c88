package membership

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndex_Add_KeepsJoinOrder(t *testing.T) {
	req := require.New(t)
	idx := New()

	idx.Add("A", "R1")
	idx.Add("B", "R1")
	idx.Add("A", "R1")

	req.Equal([]string{"A", "B"}, idx.Members("R1"))
	req.Equal([]string{"R1"}, idx.RoomsOf("A"))
	req.Equal(1, idx.RoomCount())
}

func TestIndex_ConnectionInManyRooms(t *testing.T) {
	req := require.New(t)
	idx := New()

	idx.Add("A", "R1")
	idx.Add("A", "R2")
	idx.Add("B", "R2")

	req.ElementsMatch([]string{"R1", "R2"}, idx.RoomsOf("A"))
	req.Equal([]string{"A"}, idx.Members("R1"))
	req.Equal([]string{"A", "B"}, idx.Members("R2"))
}

func TestIndex_Remove(t *testing.T) {
	req := require.New(t)
	idx := New()
	idx.Add("A", "R1")
	idx.Add("B", "R1")

	req.True(idx.Remove("A", "R1"))
	req.False(idx.Remove("A", "R1"))

	req.Equal([]string{"B"}, idx.Members("R1"))
	req.Empty(idx.RoomsOf("A"))

	// Last member out drops the roster
	req.True(idx.Remove("B", "R1"))
	req.Nil(idx.Members("R1"))
	req.Zero(idx.RoomCount())
}

func TestIndex_RemoveConnection(t *testing.T) {
	req := require.New(t)
	idx := New()
	idx.Add("A", "R1")
	idx.Add("A", "R2")
	idx.Add("B", "R1")

	left := idx.RemoveConnection("A")

	req.ElementsMatch([]string{"R1", "R2"}, left)
	req.Equal([]string{"B"}, idx.Members("R1"))
	req.Nil(idx.Members("R2"))
	req.Nil(idx.RoomsOf("A"))
	req.Nil(idx.RemoveConnection("A"))
}

func TestIndex_RejoinAfterRoomEmptied(t *testing.T) {
	req := require.New(t)
	idx := New()
	idx.Add("A", "R1")
	idx.RemoveConnection("A")

	idx.Add("B", "R1")

	req.Equal([]string{"B"}, idx.Members("R1"))
}

func TestIndex_ConcurrentRooms(t *testing.T) {
	req := require.New(t)
	idx := New()

	var wg sync.WaitGroup
	for r := 0; r < 10; r++ {
		for c := 0; c < 20; c++ {
			wg.Add(1)
			go func(r, c int) {
				defer wg.Done()
				idx.Add(fmt.Sprintf("conn-%d-%d", r, c), fmt.Sprintf("room-%d", r))
			}(r, c)
		}
	}
	wg.Wait()

	req.Equal(10, idx.RoomCount())
	for r := 0; r < 10; r++ {
		req.Len(idx.Members(fmt.Sprintf("room-%d", r)), 20)
	}
}
