package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitKafkaProducer_EmptyBrokers(t *testing.T) {
	logger, hook := test.NewNullLogger()

	producer := initKafkaProducer(nil, logger.WithField("test", "kafka"))

	assert.Nil(t, producer)
	assert.Empty(t, hook.AllEntries())
}

func TestInitKafkaProducer_InvalidBrokersLogsAndDisables(t *testing.T) {
	logger, hook := test.NewNullLogger()

	producer := initKafkaProducer([]string{"invalid-broker:9999"}, logger.WithField("test", "kafka"))

	assert.Nil(t, producer)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Contains(t, entry.Message, "continuing without kafka")
	assert.NotNil(t, entry.Data[log.ErrorKey])
}

func TestCloseKafka_NilProducer(t *testing.T) {
	logger := log.WithField("test", "kafka")

	// Не должно паниковать
	closeKafka(nil, logger)
}
