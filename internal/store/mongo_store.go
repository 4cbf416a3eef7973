package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	c "github.com/life-stream-dev/life-stream-go-device-agent/internal/config"
	event2 "github.com/life-stream-dev/life-stream-go-device-agent/internal/event"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var client *mongo.Client
var database *mongo.Database
var pinStates *mongo.Collection
var operationTimeout time.Duration

type DBCloseCallback struct {
}

func NewDBCloseCallback() *DBCloseCallback {
	return &DBCloseCallback{}
}

func (dc *DBCloseCallback) Invoke(ctx context.Context) error {
	logger.InfoF("Closing shadow database connection")
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// ConnectDatabase 连接影子数据库并准备集合索引
func ConnectDatabase() error {
	logger.DebugF("Connecting to shadow database...")
	config, err := c.GetConfig()
	if err != nil {
		return fmt.Errorf("error occured while connecting to database: %v", err)
	}

	operationTimeout = utils.ParseStringTime(config.Shadow.OperationTimeout)
	if operationTimeout == 0 {
		operationTimeout = 3 * time.Second
	}

	// 编码特殊字符
	encodedUser := url.QueryEscape(config.Shadow.Username)
	encodedPass := url.QueryEscape(config.Shadow.Password)
	databaseUrl := fmt.Sprintf("mongodb://%s:%s@%s:%d/?authSource=admin",
		encodedUser, encodedPass,
		config.Shadow.Host,
		config.Shadow.Port,
	)

	clientOptions := options.Client().ApplyURI(databaseUrl).SetAppName(config.AppName)
	// 连接池配置
	clientOptions.SetMinPoolSize(config.Shadow.MinPoolSize)
	clientOptions.SetMaxPoolSize(config.Shadow.MaxPoolSize)
	clientOptions.SetMaxConnIdleTime(utils.ParseStringTime(config.Shadow.ConnectIdleTimeout))
	// 超时限制
	clientOptions.SetConnectTimeout(utils.ParseStringTime(config.Shadow.ConnectTimeout))
	clientOptions.SetSocketTimeout(utils.ParseStringTime(config.Shadow.SocketTimeout))
	// 心跳包
	clientOptions.SetHeartbeatInterval(utils.ParseStringTime(config.Shadow.Heartbeat))
	// TLS
	if config.Shadow.UseTLS {
		tlsConfig := &tls.Config{
			InsecureSkipVerify: false,
		}
		clientOptions.SetTLSConfig(tlsConfig)
	}
	// 连接池监控
	clientOptions.SetPoolMonitor(&event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			switch evt.Type {
			case event.ConnectionCreated:
				logger.DebugF("Shadow database connection created: %+v", evt)
			case event.ConnectionClosed:
				logger.DebugF("Shadow database connection closed: %+v", evt)
			}
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("error occured while connecting to database: %v", err)
	}

	// 验证连接
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("error occured while pinging database: %v", err)
	}

	database = client.Database(config.Shadow.Database)
	pinStates = database.Collection(PinStateCollectionName)

	_, err = pinStates.Indexes().CreateOne(
		context.Background(),
		mongo.IndexModel{
			Keys:    bson.D{{Key: "pin", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("pin_states_pin_unique"),
		},
	)

	if err != nil {
		return fmt.Errorf("error occured while creating database indexes: %v", err)
	}

	event2.NewCleaner().Add(NewDBCloseCallback())
	return nil
}

// MongoStore 基于MongoDB的影子存储
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore() *MongoStore {
	return &MongoStore{collection: pinStates}
}

func (ds *MongoStore) Save(state PinState) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	filter := bson.D{{Key: "pin", Value: state.Pin}}
	opts := options.Replace().SetUpsert(true)

	result, err := ds.collection.ReplaceOne(ctx, filter, state, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("unique key conflicts: %w", err)
		}
		return fmt.Errorf("database operation failed: %w", err)
	}

	logger.DebugF("Pin state saved: pin=%d, matched=%d, modified=%d, upserted=%v",
		state.Pin,
		result.MatchedCount,
		result.ModifiedCount,
		result.UpsertedID != nil,
	)

	return nil
}

func (ds *MongoStore) Get(pinNum int) (*PinState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	filter := bson.D{{Key: "pin", Value: pinNum}}
	var state PinState

	startTime := time.Now()
	err := ds.collection.FindOne(ctx, filter).Decode(&state)
	logger.DebugF("pin state query cost: %v", time.Since(startTime))

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: pin %d", ErrPinStateNotFound, pinNum)
		}
		return nil, fmt.Errorf("database operation failed: %w", err)
	}
	return &state, nil
}

func (ds *MongoStore) All() ([]PinState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "pin", Value: 1}})
	cursor, err := ds.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("database operation failed: %w", err)
	}

	var states []PinState
	if err := cursor.All(ctx, &states); err != nil {
		return nil, fmt.Errorf("database operation failed: %w", err)
	}
	return states, nil
}

func (ds *MongoStore) Delete(pinNum int) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	filter := bson.D{{Key: "pin", Value: pinNum}}
	result, err := ds.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("database operation failed: %w", err)
	}

	logger.DebugF("Pin state deleted: pin=%d, deleted=%d", pinNum, result.DeletedCount)
	return nil
}
