package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	skafka "github.com/radieske/wingo-game-platform/internal/shared/kafka"
	"github.com/radieske/wingo-game-platform/pkg/contracts/events"
)

// KafkaPublisher emite as notificações de ciclo de vida da rodada.
// Um writer por tópico; a chave da mensagem é o roundId pra manter
// a ordem por rodada dentro da partição.
type KafkaPublisher struct {
	RoundStarted   *kafka.Writer
	BetsClosed     *kafka.Writer
	ResultRevealed *kafka.Writer
}

func NewKafkaPublisher(roundStarted, betsClosed, resultRevealed *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{
		RoundStarted:   roundStarted,
		BetsClosed:     betsClosed,
		ResultRevealed: resultRevealed,
	}
}

func (p *KafkaPublisher) PublishRoundStarted(ctx context.Context, e events.RoundStarted) error {
	return publish(ctx, p.RoundStarted, e.RoundID, e)
}

func (p *KafkaPublisher) PublishBetsClosed(ctx context.Context, e events.BetsClosed) error {
	return publish(ctx, p.BetsClosed, e.RoundID, e)
}

func (p *KafkaPublisher) PublishResultRevealed(ctx context.Context, e events.ResultRevealed) error {
	return publish(ctx, p.ResultRevealed, e.RoundID, e)
}

func publish(ctx context.Context, w *kafka.Writer, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return skafka.WriteJSON(ctx, w, key, b)
}
