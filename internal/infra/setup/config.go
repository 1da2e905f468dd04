package setup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported DB_DRIVER values.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DBConfig holds the connection parameters of the SQL database.
type DBConfig struct {
	Driver   string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	// Path is the database file for the sqlite driver.
	Path string
}

// DSN builds the driver specific connection string.
func (c DBConfig) DSN() (string, error) {
	switch strings.ToLower(c.Driver) {
	case DriverMySQL, "":
		if c.User == "" {
			return "", fmt.Errorf("DB_USER must be set for the mysql driver")
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, orDefault(c.Host, "127.0.0.1"), orDefault(c.Port, "3306"), orDefault(c.Name, "room_designer")), nil
	case DriverPostgres:
		if c.User == "" {
			return "", fmt.Errorf("DB_USER must be set for the postgres driver")
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			orDefault(c.Host, "127.0.0.1"), c.User, c.Password, orDefault(c.Name, "room_designer"), orDefault(c.Port, "5432")), nil
	case DriverSQLite:
		return "file:" + orDefault(c.Path, "room-designer.db"), nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// InitDB opens the database selected by cfg.Driver and sizes its pool.
func InitDB(cfg DBConfig) (*gorm.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = gormlite.Open(dsn)
	default:
		dialector = mysql.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", orDefault(cfg.Driver, DriverMySQL), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if strings.ToLower(cfg.Driver) == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	logrus.WithField("driver", orDefault(cfg.Driver, DriverMySQL)).Info("Database connected")
	return db, nil
}

// InitRedis creates the client and pings it.
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	logrus.Info("Redis connected")
	return client, nil
}
