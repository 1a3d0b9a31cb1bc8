package userstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Config represents the connection settings for the user-record database.
type Config struct {
	ConnectionURL   string        `env:"MONGODB_URL,required"`
	Database        string        `env:"MONGODB_DATABASE" envDefault:"gateway"`
	Collection      string        `env:"MONGODB_USERS_COLLECTION" envDefault:"users"`
	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`
	RetryAttempts   int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}

var (
	// ErrFailedToConnect is returned when no connection attempt succeeded.
	ErrFailedToConnect = errors.New("failed to connect to user record database")

	// ErrHealthcheckFailed is returned by the readiness probe on ping failure.
	ErrHealthcheckFailed = errors.New("user record database healthcheck failed")
)

// Connect establishes a client connection, retrying per cfg.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	for attempt := 0; attempt < cfg.RetryAttempts; attempt++ {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize).
				SetMinPoolSize(cfg.MinPoolSize).
				SetMaxConnIdleTime(cfg.MaxConnIdleTime),
		)
		if err == nil {
			if err := client.Ping(ctx, nil); err == nil {
				return client, nil
			}
		}

		time.Sleep(cfg.RetryInterval)
	}

	return nil, ErrFailedToConnect
}

// Healthcheck returns a readiness probe function that pings the database.
func Healthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx, nil); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// MongoStore implements Store on a MongoDB collection keyed by user ID.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a Store backed by the given client and config.
func NewMongoStore(client *mongo.Client, cfg Config) *MongoStore {
	return &MongoStore{col: client.Database(cfg.Database).Collection(cfg.Collection)}
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return &user, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	update := bson.M{
		"$set":         bson.M(fields),
		"$currentDate": bson.M{FieldLastUpdated: true},
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// claimFilter matches only records that were never provisioned with a
// billing customer, so exactly one concurrent claim can succeed.
func claimFilter(id string) bson.M {
	return bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{FieldBillingCustomerID: bson.M{"$exists": false}},
			bson.M{FieldBillingCustomerID: nil},
			bson.M{FieldBillingCustomerID: ""},
		},
	}
}

func claimUpdate(customerID string) bson.M {
	return bson.M{
		"$set":         bson.M{FieldBillingCustomerID: customerID},
		"$currentDate": bson.M{FieldLastUpdated: true},
	}
}

func (s *MongoStore) ClaimBillingCustomerID(ctx context.Context, id, customerID string) (string, error) {
	res, err := s.col.UpdateOne(ctx, claimFilter(id), claimUpdate(customerID))
	if err != nil {
		return "", errors.Join(ErrStoreFailure, err)
	}
	if res.MatchedCount == 1 {
		return customerID, nil
	}

	// Claim lost or record absent; read back to find out which.
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	if !user.HasBillingCustomer() {
		// Matched neither branch: the record exists without a customer ID but
		// the conditional update missed it. Treat as a store-level anomaly.
		return "", ErrStoreFailure
	}
	return *user.BillingCustomerID, nil
}

// subscriptionStateFilter admits an event only when it is at least as recent
// as the last one recorded on the user ($lte, so a redelivery with an equal
// timestamp still converges); a missing watermark counts as older. This is
// what keeps redeliveries and out-of-order events from rolling the record
// back to a stale state.
func subscriptionStateFilter(id string, eventTime time.Time) bson.M {
	return bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{FieldLastBillingEventAt: bson.M{"$exists": false}},
			bson.M{FieldLastBillingEventAt: nil},
			bson.M{FieldLastBillingEventAt: bson.M{"$lte": eventTime}},
		},
	}
}

// subscriptionStateUpdate merges the transition fields with the new watermark
// and the server-assigned lastUpdated, all in one atomic write.
func subscriptionStateUpdate(fields map[string]any, eventTime time.Time) bson.M {
	merged := make(bson.M, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged[FieldLastBillingEventAt] = eventTime

	return bson.M{
		"$set":         merged,
		"$currentDate": bson.M{FieldLastUpdated: true},
	}
}

func (s *MongoStore) ApplySubscriptionState(ctx context.Context, id string, fields map[string]any, eventTime time.Time) error {
	res, err := s.col.UpdateOne(ctx, subscriptionStateFilter(id, eventTime), subscriptionStateUpdate(fields, eventTime))
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetUser(ctx, id); err != nil {
			return err
		}
		return ErrStaleEvent
	}
	return nil
}
