package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/clearexpress/brokerage_backend/config"
	"bitbucket.org/clearexpress/brokerage_backend/models"
	"bitbucket.org/clearexpress/brokerage_backend/utils"
)

// Exercises the intake flow end to end against real MySQL/Redis:
// consignees dedupe on TIN or name, exporters only on name plus address,
// and shipments stay invisible across user accounts.
func TestShipmentIntakeClientMatching(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "brokerage_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := config.ClearRedis(ctx); err != nil {
		t.Fatalf("ClearRedis: %v", err)
	}
	models.MigrateTable()

	broker, err := models.CreateUser(ctx, &models.NewUser{
		Username: "ana@clex.test",
		Name:     "Ana",
		Password: "secret-pass-1",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	other, err := models.CreateUser(ctx, &models.NewUser{
		Username: "ben@clex.test",
		Name:     "Ben",
		Password: "secret-pass-2",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	brokerCtx := utils.SetUserIdInContext(ctx, broker.ID)
	brokerCtx = utils.SetUserNameInContext(brokerCtx, broker.Name)
	otherCtx := utils.SetUserIdInContext(ctx, other.ID)
	otherCtx = utils.SetUserNameInContext(otherCtx, other.Name)

	// 1) First shipment creates both client rows.
	first, err := models.CreateShipment(brokerCtx, &models.NewShipment{
		ShipmentType: models.TransactionTypeSeaImport,
		Consignee: &models.NewConsignee{
			Name:            "Pacific Traders Inc.",
			BusinessAddress: "Manila",
			Tin:             "123-456-789-000",
		},
		Exporter: &models.NewExporter{
			Name:            "Shenzhen Exports Ltd.",
			BusinessAddress: "Shenzhen",
		},
		ShipmentDetails: models.ShipmentDetails{"bl_number": "MAEU0000001"},
	})
	if err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	if !regexp.MustCompile(`^CLEX-IMS\d{2}-\d{4}$`).MatchString(first.ReferenceNumber) {
		t.Fatalf("reference number %q has the wrong shape", first.ReferenceNumber)
	}
	if first.ConsigneeId == nil || first.ExporterId == nil {
		t.Fatal("first shipment should link both freshly created clients")
	}

	// The transaction seeds exactly one timeline event.
	loaded, err := models.GetShipment(brokerCtx, first.ID)
	if err != nil || loaded == nil {
		t.Fatalf("GetShipment: %v", err)
	}
	view, err := models.ProjectShipment(loaded)
	if err != nil {
		t.Fatalf("ProjectShipment: %v", err)
	}
	if len(view.Timeline) != 1 {
		t.Fatalf("new shipment timeline has %d events, want 1", len(view.Timeline))
	}
	if view.Status != string(models.StageClientDetails) {
		t.Fatalf("new shipment status = %q, want Client Details", view.Status)
	}

	// 2) Same TIN but a different name still dedupes the consignee (TIN OR
	// name). Same exporter name with a different address creates a new row
	// (name AND address).
	second, err := models.CreateShipment(brokerCtx, &models.NewShipment{
		ShipmentType: models.TransactionTypeSeaImport,
		Consignee: &models.NewConsignee{
			Name: "Pacific Traders Incorporated",
			Tin:  "123-456-789-000",
		},
		Exporter: &models.NewExporter{
			Name:            "Shenzhen Exports Ltd.",
			BusinessAddress: "Guangzhou",
		},
		ShipmentDetails: models.ShipmentDetails{"bl_number": "MAEU0000002"},
	})
	if err != nil {
		t.Fatalf("CreateShipment (second): %v", err)
	}
	if second.ConsigneeId == nil || *second.ConsigneeId != *first.ConsigneeId {
		t.Fatalf("consignee with the same TIN must dedupe: first=%v second=%v", first.ConsigneeId, second.ConsigneeId)
	}
	if second.ExporterId == nil || *second.ExporterId == *first.ExporterId {
		t.Fatal("exporter with a different address must create a new row")
	}

	// 3) Exact exporter name+address match dedupes.
	third, err := models.CreateShipment(brokerCtx, &models.NewShipment{
		ShipmentType: models.TransactionTypeAirImport,
		Exporter: &models.NewExporter{
			Name:            "Shenzhen Exports Ltd.",
			BusinessAddress: "Shenzhen",
		},
		ShipmentDetails: models.ShipmentDetails{"awb_number": "618-00000003"},
	})
	if err != nil {
		t.Fatalf("CreateShipment (third): %v", err)
	}
	if third.ExporterId == nil || *third.ExporterId != *first.ExporterId {
		t.Fatal("exporter with matching name and address must dedupe")
	}
	if third.ConsigneeId != nil {
		t.Fatal("shipment without a consignee form must not link one")
	}

	// 4) Cross-user isolation: another account resolves nil, not an error.
	stolen, err := models.GetShipment(otherCtx, first.ID)
	if err != nil {
		t.Fatalf("GetShipment (other user): %v", err)
	}
	if stolen != nil {
		t.Fatal("a shipment must be invisible to other users")
	}

	// 5) Status updates: forward moves succeed, backward moves report false,
	// and the timeline only grows when the caller supplies an event.
	if ok := models.UpdateShipmentStatus(brokerCtx, first.ID, string(models.StageAssessment), nil); !ok {
		t.Fatal("forward stage move should succeed")
	}
	if ok := models.UpdateShipmentStatus(brokerCtx, first.ID, string(models.StageClientDetails), nil); ok {
		t.Fatal("backward stage move must be rejected")
	}
	if ok := models.UpdateShipmentStatus(brokerCtx, first.ID, "Lost At Sea", nil); ok {
		t.Fatal("unrecognized stage must be rejected")
	}
	if ok := models.UpdateShipmentStatus(otherCtx, first.ID, string(models.StageDelivery), nil); ok {
		t.Fatal("other users cannot move someone else's shipment")
	}

	loaded, err = models.GetShipment(brokerCtx, first.ID)
	if err != nil || loaded == nil {
		t.Fatalf("GetShipment after status updates: %v", err)
	}
	view, err = models.ProjectShipment(loaded)
	if err != nil {
		t.Fatalf("ProjectShipment: %v", err)
	}
	if view.Status != string(models.StageAssessment) {
		t.Fatalf("status = %q, want Assessment", view.Status)
	}
	if len(view.Timeline) != 1 {
		t.Fatalf("timeline has %d events after a move without an event, want the seeded 1", len(view.Timeline))
	}

	event := &models.TimelineEvent{Description: "Assessment completed, lodging entry"}
	if ok := models.UpdateShipmentStatus(brokerCtx, first.ID, string(models.StageCustomsClearance), event); !ok {
		t.Fatal("forward stage move with an event should succeed")
	}
	loaded, err = models.GetShipment(brokerCtx, first.ID)
	if err != nil || loaded == nil {
		t.Fatalf("GetShipment after event move: %v", err)
	}
	view, err = models.ProjectShipment(loaded)
	if err != nil {
		t.Fatalf("ProjectShipment: %v", err)
	}
	if len(view.Timeline) != 2 {
		t.Fatalf("timeline has %d events after one event-carrying move, want 2", len(view.Timeline))
	}
	if view.Timeline[0].Status != string(models.StageClientDetails) || view.Timeline[1].Status != string(models.StageCustomsClearance) {
		t.Fatalf("timeline order broken: %+v", view.Timeline)
	}

	// 6) Upload intake: a matched type flips the entry to draft, an unmatched
	// type leaves the checklist alone and reports no status.
	status, err := models.RecordShipmentUpload(brokerCtx, first.ID, "Commercial Invoice", "https://files.example/kyc/ci.pdf")
	if err != nil {
		t.Fatalf("RecordShipmentUpload: %v", err)
	}
	if status != models.DocumentStatusDraft {
		t.Fatalf("matched upload status = %q, want draft", status)
	}
	status, err = models.RecordShipmentUpload(brokerCtx, first.ID, "Phytosanitary Certificate", "https://files.example/kyc/phyto.pdf")
	if err != nil {
		t.Fatalf("RecordShipmentUpload (unmatched): %v", err)
	}
	if status != "" {
		t.Fatalf("unmatched upload must report no status, got %q", status)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("brokerage-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("brokerage-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=brokerage_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
