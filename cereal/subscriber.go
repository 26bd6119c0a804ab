package cereal

import (
	"github.com/pfeiferj/gomsgq"
	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/settings"
	"github.com/Koyaani/titaniumcar/utils"
)

type Decoder[T any] func([]byte) (T, error)

type Subscriber[T any] struct {
	read   func() []byte
	close  func() error
	decode Decoder[T]
}

// Read returns the next message, or false when nothing new is queued or
// the message could not be decoded.
func (s *Subscriber[T]) Read() (obj T, success bool) {
	data := s.read()
	if len(data) == 0 {
		return obj, false
	}
	obj, err := s.decode(data)
	if err != nil {
		utils.Logde(errors.Wrap(err, "could not decode message"))
		return obj, false
	}
	return obj, true
}

func (s *Subscriber[T]) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func NewSubscriber[T any](name string, decode Decoder[T], conflate bool) (subscriber Subscriber[T], err error) {
	msgq := gomsgq.Msgq{}
	err = msgq.Init(name, settings.DEFAULT_SEGMENT_SIZE)
	if err != nil {
		return subscriber, errors.Wrapf(err, "could not open queue %s", name)
	}
	sub := gomsgq.MsgqSubscriber{}
	sub.Conflate = conflate
	sub.Init(msgq)

	subscriber.read = func() []byte { return sub.Read() }
	subscriber.close = func() error { return closeMsgq(&msgq) }
	subscriber.decode = decode
	return subscriber, nil
}
