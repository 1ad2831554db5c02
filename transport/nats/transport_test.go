package nats

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/stretchr/testify/assert"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "edges.edge-1.groundrag", Topic("edge-1"))
}

func TestError(t *testing.T) {
	assert := assert.New(t)

	assert.Error(Error(nil))

	ok := nats.NewMsg("reply")
	assert.NoError(Error(ok))

	failed := nats.NewMsg("reply")
	failed.Header.Set(micro.ErrorCodeHeader, "404")
	failed.Header.Set(micro.ErrorHeader, "corpus directory not found")
	assert.EqualError(Error(failed), "404:corpus directory not found")

	bare := nats.NewMsg("reply")
	bare.Header.Set(micro.ErrorCodeHeader, "500")
	assert.EqualError(Error(bare), "500:unknown error")
}
