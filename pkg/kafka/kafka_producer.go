package kafka

import (
	"context"
	"log"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// Kafka 生产者服务
// 运行结果事件写入事件流，供下游分析端消费
// 定义接口，方便测试和替换
type ProducerService interface {
	Produce(ctx context.Context, key string, event interface{}) error
	Close()
}

type kafkaProducer struct {
	eventWriter *kafka.Writer
}

func NewKafkaProducer(brokerURL, topic string) ProducerService {
	eventWriter := &kafka.Writer{
		Addr:     kafka.TCP(brokerURL),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{}, // 保证写入负载均衡
	}
	return &kafkaProducer{eventWriter: eventWriter}
}

// Produce 序列化事件为JSON并写入
// key使用userID，确保同一用户的运行事件进入同一个Partition（有序性）
func (p *kafkaProducer) Produce(ctx context.Context, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.eventWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	})
}

func (p *kafkaProducer) Close() {
	if err := p.eventWriter.Close(); err != nil {
		log.Printf("Error closing event writer: %v", err)
	}
}

// NopProducer 未配置kafka时的空实现
type NopProducer struct{}

func (NopProducer) Produce(ctx context.Context, key string, event interface{}) error { return nil }
func (NopProducer) Close()                                                           {}
