package test

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const LOCAL_DDB_PORT = 8000

const TableName = "ListSyncData"

func CreateTable(ctx context.Context, client *dynamodb.Client) (string, error) {
	keySchema := []types.KeySchemaElement{
		{
			AttributeName: aws.String("PK"),
			KeyType:       types.KeyTypeHash,
		},
		{
			AttributeName: aws.String("SK"),
			KeyType:       types.KeyTypeRange,
		},
	}
	attributes := []types.AttributeDefinition{
		{
			AttributeName: aws.String("PK"),
			AttributeType: types.ScalarAttributeTypeS,
		},
		{
			AttributeName: aws.String("SK"),
			AttributeType: types.ScalarAttributeTypeS,
		},
	}
	output, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(TableName),
		KeySchema:            keySchema,
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: attributes,
	})
	if err != nil {
		return "", err
	}
	waiter := dynamodb.NewTableExistsWaiter(client, func(tewo *dynamodb.TableExistsWaiterOptions) {
		tewo.LogWaitAttempts = true
	})
	_, err = waiter.WaitForOutput(ctx, &dynamodb.DescribeTableInput{
		TableName: output.TableDescription.TableName,
	}, time.Second*5)
	return *output.TableDescription.TableName, err
}

type LocalDynamoServer struct {
	Process *os.Process
	Port    int
}

func (l *LocalDynamoServer) Endpoint() string {
	return fmt.Sprintf("http://localhost:%d", l.Port)
}

func (l *LocalDynamoServer) CreateLocalClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRetryMaxAttempts(10),
		config.WithRegion("us-east-1"),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{URL: l.Endpoint()}, nil
			})),
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     "fake",
				SecretAccessKey: "fake",
				SessionToken:    "fake",
			}}),
	)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// LocalJarDir is where DynamoDB Local is expected, relative to a package
// directory two levels below the repository root. DYNAMODB_LOCAL_DIR wins.
func LocalJarDir() string {
	if dir := os.Getenv("DYNAMODB_LOCAL_DIR"); dir != "" {
		return dir
	}
	workingDir, _ := os.Getwd()
	return filepath.Join(workingDir, "..", "..", "..", "dynamodb")
}

// StartLocalServer launches DynamoDB Local, skipping the test when java or
// the jar are not installed.
func StartLocalServer(port int, t *testing.T) *LocalDynamoServer {
	t.Helper()
	dir := LocalJarDir()
	jar := filepath.Join(dir, "DynamoDBLocal.jar")
	if _, err := os.Stat(jar); err != nil {
		t.Skipf("DynamoDB Local not found at %s", jar)
	}
	if _, err := exec.LookPath("java"); err != nil {
		t.Skip("java is not installed")
	}
	cmd := exec.Command(
		"java", fmt.Sprintf("-Djava.library.path=%s", filepath.Join(dir, "DynamoDBLocal_lib")),
		"-jar", jar,
		"-port", strconv.Itoa(port),
		"-inMemory",
	)
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start local DDB server: %s", err)
	}
	t.Cleanup(func() {
		if err := cmd.Process.Kill(); err != nil {
			t.Errorf("Failed to terminate local DDB server: %s", err)
		}
		cmd.Wait()
	})
	waitForPort(t, port)
	return &LocalDynamoServer{Port: port, Process: cmd.Process}
}

func waitForPort(t *testing.T, port int) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), 200*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("DynamoDB Local did not listen on %d", port)
}

// NewTable starts DynamoDB Local, creates the table, and returns a client.
func NewTable(t *testing.T, port int) (*dynamodb.Client, string) {
	t.Helper()
	server := StartLocalServer(port, t)
	ctx := context.Background()
	client, err := server.CreateLocalClient(ctx)
	if err != nil {
		t.Fatalf("Failed to create local client: %s", err)
	}
	tableName, err := CreateTable(ctx, client)
	if err != nil {
		t.Fatalf("Failed to create table: %s", err)
	}
	return client, tableName
}
