package repository

import (
	"context"
	"fmt"
	"strings"

	rd "github.com/go-redis/redis/v9"
	"github.com/flowrig/flowrig/logger"
	"github.com/flowrig/flowrig/model"
	"github.com/flowrig/flowrig/util"
	"go.uber.org/zap"
)

const FLOW_DEF string = "FLOW"

type RedisConfig struct {
	Addrs     []string
	Namespace string
}

type redisFlowRepository struct {
	redisClient rd.UniversalClient
	namespace   string
	codec       util.Codec[model.Flow]
}

var _ FlowRepository = new(redisFlowRepository)

func NewRedisFlowRepository(conf RedisConfig) *redisFlowRepository {
	redisClient := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs: conf.Addrs,
	})
	return &redisFlowRepository{
		redisClient: redisClient,
		namespace:   conf.Namespace,
		codec:       util.NewJsonCodec[model.Flow](),
	}
}

func (r *redisFlowRepository) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", r.namespace, strings.Join(args, ":"))
}

func (r *redisFlowRepository) SaveFlow(flow model.Flow) error {
	key := r.getNamespaceKey(FLOW_DEF, flow.Id)
	ctx := context.Background()
	data, err := r.codec.Encode(flow)
	if err != nil {
		return err
	}
	if err := r.redisClient.Set(ctx, key, data, 0).Err(); err != nil {
		logger.Error("error saving flow definition", zap.String("flow", flow.Id), zap.Error(err))
		return err
	}
	return nil
}

func (r *redisFlowRepository) GetFlowById(id string) (*model.Flow, error) {
	key := r.getNamespaceKey(FLOW_DEF, id)
	ctx := context.Background()
	val, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == rd.Nil {
			return nil, ErrFlowNotFound
		}
		return nil, err
	}
	return r.codec.Decode([]byte(val))
}

func (r *redisFlowRepository) DeleteFlow(id string) error {
	key := r.getNamespaceKey(FLOW_DEF, id)
	ctx := context.Background()
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		logger.Error("error deleting flow definition", zap.String("flow", id), zap.Error(err))
		return err
	}
	return nil
}
