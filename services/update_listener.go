package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"boxscore-service/config"
	"boxscore-service/logger"
)

// UpdateNotification 上游推送的比赛更新通知
type UpdateNotification struct {
	GameID string `json:"game_id"`
	Reason string `json:"reason,omitempty"`
}

// UpdateListener 监听上游的比赛更新通知，触发对应比赛的校验。
// 连接断开后指数退避自动重连。
type UpdateListener struct {
	config   *config.Config
	verifier *GameVerifier
	conn     *amqp.Connection
	channel  *amqp.Channel
	done     chan bool
}

// NewUpdateListener 创建更新监听器
func NewUpdateListener(cfg *config.Config, verifier *GameVerifier) *UpdateListener {
	return &UpdateListener{
		config:   cfg,
		verifier: verifier,
		done:     make(chan bool),
	}
}

// Start 启动监听，阻塞直到 Stop 被调用
func (l *UpdateListener) Start() error {
	delay := 1 * time.Second
	maxDelay := 60 * time.Second

	for {
		select {
		case <-l.done:
			return nil
		default:
		}

		err := l.connectAndConsume()
		if err == nil {
			// 正常退出 (Stop 被调用)
			return nil
		}

		logger.Errorf("[UpdateListener] ❌ Connection lost: %v, retrying in %v", err, delay)
		select {
		case <-l.done:
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// Stop 停止监听
func (l *UpdateListener) Stop() {
	close(l.done)
	if l.channel != nil {
		l.channel.Close()
	}
	if l.conn != nil {
		l.conn.Close()
	}
}

// connectAndConsume 连接并消费，直到连接断开或 Stop
func (l *UpdateListener) connectAndConsume() error {
	logger.Printf("[UpdateListener] Connecting to %s...", l.config.AMQPURL)

	conn, err := amqp.Dial(l.config.AMQPURL)
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP: %w", err)
	}
	l.conn = conn

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}
	l.channel = channel

	queue, err := channel.QueueDeclare(
		l.config.AMQPQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := channel.Consume(
		queue.Name,
		"",    // consumer
		true,  // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	logger.Printf("[UpdateListener] ✅ Consuming game updates from queue %s", queue.Name)

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-l.done:
			return nil
		case amqpErr := <-connClosed:
			if amqpErr == nil {
				return nil
			}
			return fmt.Errorf("connection closed: %v", amqpErr)
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			l.handleMessage(msg.Body)
		}
	}
}

// handleMessage 处理一条更新通知
func (l *UpdateListener) handleMessage(body []byte) {
	var notification UpdateNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		logger.Errorf("[UpdateListener] ❌ Failed to parse notification: %v", err)
		return
	}

	if notification.GameID == "" {
		logger.Warnf("[UpdateListener] Notification without game_id, skipping")
		return
	}

	logger.Printf("[UpdateListener] 📨 Update notification for game %s (reason: %s)",
		notification.GameID, notification.Reason)

	result := l.verifier.CompareAndUpdate(notification.GameID)
	logger.Printf("[UpdateListener] Game %s verification: %s", notification.GameID, result.Status)
}
