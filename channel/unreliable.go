package channel

import "github.com/netplay-go/netsim/wire"

// UnreliableUnordered is a plain FIFO in both directions: no sequence
// tracking, no acks, no retransmission. Grounded on spec.md §4.5 and the
// §9 design note resolving the teacher source's TODO about the unreliable
// channel popping only the queue front — here that is the specified
// behavior, not a bug: strict FIFO via a slice-backed deque.
type UnreliableUnordered struct {
	sendQueue  []*wire.Message
	readyQueue []*wire.Message
}

// NewUnreliableUnordered constructs an empty channel.
func NewUnreliableUnordered() *UnreliableUnordered {
	return &UnreliableUnordered{}
}

func (c *UnreliableUnordered) AddToSend(msg *wire.Message) {
	c.sendQueue = append(c.sendQueue, msg)
}

func (c *UnreliableUnordered) NextToSend() *wire.Message {
	if len(c.sendQueue) == 0 {
		return nil
	}
	msg := c.sendQueue[0]
	c.sendQueue = c.sendQueue[1:]
	return msg
}

func (c *UnreliableUnordered) OnReceive(msg *wire.Message) {
	c.readyQueue = append(c.readyQueue, msg)
}

func (c *UnreliableUnordered) Ready() *wire.Message {
	if len(c.readyQueue) == 0 {
		return nil
	}
	msg := c.readyQueue[0]
	c.readyQueue = c.readyQueue[1:]
	return msg
}

func (c *UnreliableUnordered) GenerateAcks() (uint16, uint32) { return 0, 0 }
func (c *UnreliableUnordered) ProcessAcks(uint16, uint32)     {}
func (c *UnreliableUnordered) Tick(int64)                     {}

var _ Channel = (*UnreliableUnordered)(nil)
