package redis_client

import (
	"context"
	"strconv"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/arrivalsign/pkg/util"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

func Connect() error {
	address := defaultConnectionAddress
	password := defaultConnectionPassword
	database := defaultDatabase

	env := util.GetEnvironmentVariables()

	if env["ARRIVALSIGN_REDIS_ADDRESS"] != "" {
		address = env["ARRIVALSIGN_REDIS_ADDRESS"]
	}

	if env["ARRIVALSIGN_REDIS_PASSWORD"] != "" {
		password = env["ARRIVALSIGN_REDIS_PASSWORD"]
	}

	if env["ARRIVALSIGN_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["ARRIVALSIGN_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	return ConnectTo(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})
}

// ConnectTo sets up the shared client and queue connection for the given
// options and checks the server answers.
func ConnectTo(options *redis.Options) error {
	Client = redis.NewClient(options)

	statusCmd := Client.Ping(context.Background())
	err := statusCmd.Err()
	if err != nil {
		return err
	}

	QueueConnection, err = rmq.OpenConnectionWithRedisClient("arrivalsign", Client, nil)

	if err != nil {
		return err
	}

	return nil
}
