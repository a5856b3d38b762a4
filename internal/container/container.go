package container

import (
	"context"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joshua-takyi/unibook/internal/cache"
	"github.com/joshua-takyi/unibook/internal/config"
	"github.com/joshua-takyi/unibook/internal/documents"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/mailer"
	"github.com/joshua-takyi/unibook/internal/models"
	"github.com/joshua-takyi/unibook/internal/mq"
	"github.com/joshua-takyi/unibook/internal/services"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Cloudinary *cloudinary.Cloudinary
	// Database and infrastructure clients; Redis and AMQP may be nil
	MongoDBClient *mongo.Client
	Cache         *cache.RedisCache
	AMQP          *amqp.Connection
	Repo          *models.MongodbRepo

	Tokens   helpers.TokenVerifier
	Mailer   mailer.Sender
	Notifier services.Notifier

	UserService     *services.UserService
	ResourceService *services.ResourceService
	BookingService  *services.BookingService
	IssuanceService *services.IssuanceService

	closers []func()
}

// NewContainer creates a new dependency injection container
func NewContainer(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	cld *cloudinary.Cloudinary,
	mongoDBClient *mongo.Client,
	redisCache *cache.RedisCache,
	amqpConn *amqp.Connection,
) (*Container, error) {
	c := &Container{
		Config:        cfg,
		Logger:        logger,
		Cloudinary:    cld,
		MongoDBClient: mongoDBClient,
		Cache:         redisCache,
		AMQP:          amqpConn,
	}

	c.Repo = models.MongodbNewRepo(mongoDBClient, cfg.MongoDBName, cfg.MongoDBTransactions)

	hmac := helpers.NewHMACTokens(cfg.JWTSecret, cfg.JWTTTL)
	verifiers := helpers.ChainVerifier{hmac}
	if cfg.JWKSURL != "" {
		jwks, err := helpers.NewJWKSVerifier(ctx, cfg.JWKSURL)
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, jwks)
		c.closers = append(c.closers, jwks.Close)
	}
	c.Tokens = verifiers

	c.Mailer = NewMailer(cfg, logger)

	if amqpConn != nil {
		pub, err := mq.NewPublisher(amqpConn, cfg.RabbitMQURL)
		if err != nil {
			return nil, err
		}
		c.Notifier = pub
		c.closers = append(c.closers, func() { _ = pub.Close() })
	} else {
		c.Notifier = &mailer.DirectNotifier{Sender: c.Mailer}
	}

	// a nil *RedisCache must not become a non-nil interface
	var svcCache services.Cache
	if redisCache != nil {
		svcCache = redisCache
	}
	var uploader services.ImageUploader
	if cld != nil {
		uploader = &helpers.CloudinaryUploader{Cld: cld, Folder: helpers.ResourceFolder}
	}

	codes := services.NewCodeMinter(helpers.QRDataURL, cfg.PublicBaseURL)

	c.UserService = services.NewUserService(c.Repo, hmac, cfg.BcryptCost)
	c.ResourceService = services.NewResourceService(c.Repo, svcCache, uploader, cfg.CacheTTL, logger)
	c.BookingService = services.NewBookingService(c.Repo, codes, c.Notifier, logger, cfg.DBTimeout)
	c.IssuanceService = services.NewIssuanceService(c.Repo, codes, documents.NewPDFGenerator(), logger, cfg.DBTimeout)

	return c, nil
}

// NewMailer picks Mailjet when it is configured and a logging sender otherwise.
func NewMailer(cfg *config.Config, logger *zap.Logger) mailer.Sender {
	if cfg.MailjetEnabled() {
		return mailer.NewMailjetSender(cfg.MailjetAPIKey, cfg.MailjetAPISecret, cfg.MailFrom, cfg.MailFromName)
	}
	return &mailer.LogSender{Logger: logger}
}

func (c *Container) RedisClient() *redis.Client {
	if c.Cache == nil {
		return nil
	}
	return c.Cache.Client
}

// Close releases what the container opened itself. Clients passed in are
// closed by their owner.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
