package cereal

import (
	"github.com/pfeiferj/gomsgq"
	"github.com/pkg/errors"

	"github.com/Koyaani/titaniumcar/settings"
)

type Encoder[T any] func(T) ([]byte, error)

type Publisher[T any] struct {
	send   func([]byte)
	close  func() error
	encode Encoder[T]
}

func (p *Publisher[T]) Send(obj T) error {
	b, err := p.encode(obj)
	if err != nil {
		return errors.Wrap(err, "could not encode message")
	}
	p.send(b)
	return nil
}

func (p *Publisher[T]) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

func NewPublisher[T any](name string, encode Encoder[T]) (publisher Publisher[T], err error) {
	msgq := gomsgq.Msgq{}
	err = msgq.Init(name, settings.DEFAULT_SEGMENT_SIZE)
	if err != nil {
		return publisher, errors.Wrapf(err, "could not open queue %s", name)
	}
	pub := gomsgq.MsgqPublisher{}
	pub.Init(msgq)

	publisher.send = func(b []byte) { pub.Send(b) }
	publisher.close = func() error { return closeMsgq(&msgq) }
	publisher.encode = encode
	return publisher, nil
}

func closeMsgq(msgq *gomsgq.Msgq) error {
	err, err2 := msgq.Close()
	if err != nil {
		return errors.Wrap(err, "could not close queue")
	}
	return errors.Wrap(err2, "could not close queue")
}
