package kernel

import (
	"errors"
	"sync/atomic"

	"github.com/ziyangfu/ostemp-sub000/ioq"
	"github.com/ziyangfu/ostemp-sub000/klog"
	"github.com/ziyangfu/ostemp-sub000/trap"
)

// channel is an IOC channel: one queue from the sender application to the
// receiver application. Sender and receiver never share a lock.
type channel struct {
	name     string
	id       trap.ChannelID
	q        *ioq.Queue[trap.Word]
	sender   *app
	receiver *app
	// a send failed since the last receive
	lost atomic.Bool
}

func (k *Kernel) lookupChannel(id trap.ChannelID, side func(*channel) *app) (*channel, trap.Status) {
	if int(id) >= len(k.sys.channels) {
		return nil, trap.StatusID
	}
	ch := k.sys.channels[id]
	if a := k.currentApp(); a != nil && a != side(ch) {
		return nil, trap.StatusAccess
	}
	return ch, trap.StatusOK
}

func sender(ch *channel) *app   { return ch.sender }
func receiver(ch *channel) *app { return ch.receiver }

func (k *Kernel) IocSend(id trap.ChannelID, v trap.Word) trap.Status {
	ch, st := k.lookupChannel(id, sender)
	if st != trap.StatusOK {
		return st
	}
	if err := ch.q.Enqueue(v); err != nil {
		if errors.Is(err, ioq.ErrBufferOverflow) {
			ch.lost.Store(true)
			return trap.StatusIOCLimit
		}
		klog.Errorf("ioc %s: %v", ch.name, err)
		return trap.StatusValue
	}
	return trap.StatusOK
}

// IocReceive returns the oldest value. IOC_E_LOST_DATA tells the receiver
// that a send failed before this value was read.
func (k *Kernel) IocReceive(id trap.ChannelID) (trap.Word, trap.Status) {
	ch, st := k.lookupChannel(id, receiver)
	if st != trap.StatusOK {
		return 0, st
	}
	if ch.q.IsEmpty() {
		return 0, trap.StatusIOCNoData
	}
	v := ch.q.Dequeue()
	if ch.lost.Swap(false) {
		return v, trap.StatusIOCLostData
	}
	return v, trap.StatusOK
}

// IocEmptyQueue drops everything queued. Only the receiver may do that.
func (k *Kernel) IocEmptyQueue(id trap.ChannelID) trap.Status {
	ch, st := k.lookupChannel(id, receiver)
	if st != trap.StatusOK {
		return st
	}
	ch.q.Reset()
	ch.lost.Store(false)
	return trap.StatusOK
}
