package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	aliyunpush "github.com/aliyun/alibaba-cloud-sdk-go/services/push"

	"github.com/d60-Lab/ideagraph/config"
)

// AliyunPusher 阿里云移动推送，按账号（用户 id）推送
type AliyunPusher struct {
	client *aliyunpush.Client
	appKey int64
}

func NewAliyunPusher(cfg config.PushConfig) (*AliyunPusher, error) {
	if cfg.AccessKeyID == "" || cfg.AppKey == 0 {
		return nil, fmt.Errorf("push config is missing")
	}
	client, err := aliyunpush.NewClientWithAccessKey(cfg.RegionID, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, err
	}
	return &AliyunPusher{client: client, appKey: cfg.AppKey}, nil
}

func (p *AliyunPusher) Push(_ context.Context, msg Message) error {
	request := aliyunpush.CreatePushRequest()
	request.AppKey = requests.NewInteger(int(p.appKey))
	request.Target = "ACCOUNT"
	request.TargetValue = msg.ReceiverID
	request.Title = msg.Title
	request.Body = msg.Body
	request.DeviceType = "ALL"
	request.PushType = "NOTICE"

	if len(msg.Ext) > 0 {
		ext, err := json.Marshal(msg.Ext)
		if err != nil {
			return err
		}
		request.AndroidExtParameters = string(ext)
		request.IOSExtParameters = string(ext)
	}

	_, err := p.client.Push(request)
	return err
}
