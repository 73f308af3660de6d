package push

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/ideagraph/config"
)

func TestNewSelectsProvider(t *testing.T) {
	p, err := New(config.PushConfig{Provider: "log"})
	require.NoError(t, err)
	assert.IsType(t, LogPusher{}, p)
	assert.NoError(t, p.Push(context.Background(), Message{ReceiverID: "u1", Title: "hi"}))

	_, err = New(config.PushConfig{Provider: "aliyun"})
	assert.Error(t, err)

	_, err = New(config.PushConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNewAliyunPusher(t *testing.T) {
	p, err := NewAliyunPusher(config.PushConfig{
		Provider: "aliyun", AccessKeyID: "ak", AccessKeySecret: "sk", AppKey: 1234, RegionID: "cn-hangzhou",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1234), p.appKey)
}
