// Package client provides clients for external services
package client

import (
	"context"
	"fmt"

	rts "github.com/ory/keto/proto/ory/keto/relation_tuples/v1alpha2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// 战役关系定义: campaigns:<campaign_id>#owner|member@<user_id>
const (
	CampaignNamespace = "campaigns"
	RelationOwner     = "owner"
	RelationMember    = "member"
)

// KetoClient Keto 只读客户端 (使用 gRPC Check API)
type KetoClient struct {
	readConn    *grpc.ClientConn
	checkClient rts.CheckServiceClient
}

// NewKetoClient 创建 Keto 客户端
// readAddr: Keto Read gRPC 地址 (例如: "localhost:4466")
func NewKetoClient(readAddr string) (*KetoClient, error) {
	if readAddr == "" {
		return nil, fmt.Errorf("keto read address cannot be empty")
	}

	readConn, err := grpc.Dial(readAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to keto read service: %w", err)
	}

	return &KetoClient{
		readConn:    readConn,
		checkClient: rts.NewCheckServiceClient(readConn),
	}, nil
}

// Close 关闭客户端连接
func (k *KetoClient) Close() error {
	if k.readConn == nil {
		return nil
	}
	if err := k.readConn.Close(); err != nil {
		return fmt.Errorf("failed to close read connection: %w", err)
	}
	return nil
}

// CheckPermission 检查关系是否成立
func (k *KetoClient) CheckPermission(ctx context.Context, namespace, object, relation, subjectID string) (bool, error) {
	req := &rts.CheckRequest{
		Namespace: namespace,
		Object:    object,
		Relation:  relation,
		Subject: &rts.Subject{
			Ref: &rts.Subject_Id{
				Id: subjectID,
			},
		},
	}

	resp, err := k.checkClient.Check(ctx, req)
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}

	return resp.Allowed, nil
}

// CheckCampaignAccess 用户是否为战役所有者或成员
func (k *KetoClient) CheckCampaignAccess(ctx context.Context, campaignID, userID string) (bool, error) {
	for _, relation := range []string{RelationOwner, RelationMember} {
		allowed, err := k.CheckPermission(ctx, CampaignNamespace, campaignID, relation, userID)
		if err != nil {
			return false, err
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}
