package clients

import (
	"testing"

	"github.com/spacesedan/myriadflow/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerConfig_DisablesDeliveryReports(t *testing.T) {
	cm := producerConfig(config.KafkaConfig{Broker: "localhost:9092"})

	reports, err := cm.Get("go.delivery.reports", true)
	require.NoError(t, err)
	assert.Equal(t, false, reports)

	broker, err := cm.Get("bootstrap.servers", nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9092", broker)

	txID, err := cm.Get("transactional.id", nil)
	require.NoError(t, err)
	assert.Equal(t, "myriadflow-producer-1", txID)
}
