// Package bootstrap connects the backends named in the configuration and
// builds the AppContext shared by the bridge server and wayfarerctl.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/config"
	"github.com/AnshRaj112/wayfarer-backend/internal/database"
	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"github.com/AnshRaj112/wayfarer-backend/internal/services"
	"github.com/AnshRaj112/wayfarer-backend/pkg/utils"
)

// Runtime is a built AppContext plus the connections behind it.
type Runtime struct {
	App    *services.AppContext
	Client services.ClientInfo
}

// Close disconnects every backend that was connected.
func (rt *Runtime) Close() {
	if err := database.DisconnectRedis(); err != nil {
		log.Printf("⚠️  redis disconnect: %v", err)
	}
	if err := database.DisconnectPostgres(); err != nil {
		log.Printf("⚠️  postgres disconnect: %v", err)
	}
	if err := database.Disconnect(); err != nil {
		log.Printf("⚠️  mongo disconnect: %v", err)
	}
}

// Start connects MongoDB (required) plus Redis and PostgreSQL when they
// are configured, and builds the AppContext.
func Start(cfg *config.Config) (*Runtime, error) {
	var key []byte
	if cfg.EncryptionKey == "" {
		log.Println("⚠️  WARNING: ENCRYPTION_KEY not set. The identity cache is stored unencrypted.")
		log.Println("   To generate a key, run: openssl rand -base64 32")
	} else {
		k, err := utils.ParseEncryptionKey(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("ENCRYPTION_KEY: %w", err)
		}
		key = k
		log.Println("✅ Encryption key configured")
	}

	log.Printf("Connecting to MongoDB...")
	if err := database.Connect(cfg.MongoURI, cfg.MongoDatabase); err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	rt := &Runtime{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.EnsureIndexes(ctx, database.DB); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure MongoDB indexes: %v", err)
	} else {
		log.Println("✅ MongoDB indexes ensured")
	}

	if cfg.RedisURI != "" {
		log.Printf("Connecting to Redis...")
		if err := database.ConnectRedis(cfg.RedisURI); err != nil {
			log.Printf("⚠️  WARNING: Redis unavailable, popular searches read from MongoDB: %v", err)
		}
	}

	var audit services.RecoveryAudit
	if cfg.PostgresURI != "" {
		log.Printf("Connecting to PostgreSQL...")
		if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
			log.Printf("⚠️  WARNING: PostgreSQL unavailable, recovery audit kept in memory: %v", err)
		} else {
			audit = services.NewPostgresRecoveryAudit(database.PostgresDB)
		}
	}

	rt.App = services.NewAppContext(services.AppOptions{
		Store:           database.NewMongoDocStore(database.DB),
		IdentityCache:   services.NewFileIdentityStore(cfg.IdentityCachePath(), key),
		Device:          DeviceSource(cfg),
		FingerprintMode: services.FingerprintMode(cfg.FingerprintMode),
		Redis:           database.RedisClient,
		Audit:           audit,
		ReadyRetries:    cfg.ReadyRetries,
		ReadyDelay:      cfg.ReadyDelay,
	})
	rt.Client = ClientInfo(cfg)
	return rt, nil
}

// DeviceSource uses the device info handed over by the shell, or the host
// hardware when no device id is configured.
func DeviceSource(cfg *config.Config) services.DeviceInfoSource {
	if cfg.DeviceID == "" {
		return services.HostDeviceInfo{AppVersion: cfg.AppVersion, BuildNumber: cfg.BuildNumber}
	}
	return services.StaticDeviceInfo(models.DeviceInfo{
		DeviceID:    cfg.DeviceID,
		DeviceModel: cfg.DeviceModel,
		OSVersion:   cfg.OSVersion,
		AppVersion:  cfg.AppVersion,
		BuildNumber: cfg.BuildNumber,
	})
}

// ClientInfo is the profile data written by InitializeUser when the shell
// does not send its own.
func ClientInfo(cfg *config.Config) services.ClientInfo {
	return services.ClientInfo{
		DeviceInfo: models.DeviceInfo{
			DeviceModel: cfg.DeviceModel,
			OSVersion:   cfg.OSVersion,
			AppVersion:  cfg.AppVersion,
			BuildNumber: cfg.BuildNumber,
		},
		AppVersion: cfg.AppVersion,
		Platform:   cfg.Platform,
	}
}
