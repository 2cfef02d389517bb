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

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// retailFixture is one seeded tenant the flow tests operate in.
type retailFixture struct {
	ctx        context.Context
	companyId  string
	storeId    string
	customerId string
	supplierId string
}

func setupIntegration(t *testing.T) *retailFixture {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "retail_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	company, err := models.CreateCompany(ctx, &models.NewCompany{
		Name:  "Test Retail",
		Email: fmt.Sprintf("owner-%d@test.local", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	ctx = utils.SetCompanyIdInContext(ctx, company.ID)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	store, err := models.CreateStore(ctx, &models.NewStore{Name: "Main Store"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Walk-in Customer"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Main Supplier"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}

	return &retailFixture{
		ctx:        ctx,
		companyId:  company.ID,
		storeId:    store.ID,
		customerId: customer.ID,
		supplierId: supplier.ID,
	}
}

func (f *retailFixture) createProduct(t *testing.T, name string, salePrice string, purchasePrice string, reorderLevel string) *models.Product {
	t.Helper()
	product, err := models.CreateProduct(f.ctx, &models.NewProduct{
		Name:          name,
		SalePrice:     decimal.RequireFromString(salePrice),
		PurchasePrice: decimal.RequireFromString(purchasePrice),
		ReorderLevel:  decimal.RequireFromString(reorderLevel),
	})
	if err != nil {
		t.Fatalf("CreateProduct %q: %v", name, err)
	}
	return product
}

// receiveStock books a purchase so the store holds qty of the product.
func (f *retailFixture) receiveStock(t *testing.T, productId string, qty int64) *models.Purchase {
	t.Helper()
	purchase, err := models.CreatePurchase(f.ctx, &models.NewPurchase{
		StoreId:    f.storeId,
		SupplierId: f.supplierId,
		Items:      []models.NewTransactionItem{{ProductId: productId, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("CreatePurchase (receive stock): %v", err)
	}
	return purchase
}

func (f *retailFixture) stockOf(t *testing.T, productId string) decimal.Decimal {
	t.Helper()
	records, err := models.GetInventories(f.ctx, f.storeId)
	if err != nil {
		t.Fatalf("GetInventories: %v", err)
	}
	for _, rec := range records {
		if rec.ProductId == productId {
			return rec.Quantity
		}
	}
	return decimal.Zero
}

func (f *retailFixture) receivableOf(t *testing.T, saleId string) *models.Receivable {
	t.Helper()
	receivables, err := models.GetReceivables(f.ctx)
	if err != nil {
		t.Fatalf("GetReceivables: %v", err)
	}
	for _, r := range receivables {
		if r.SaleId == saleId {
			return r
		}
	}
	return nil
}

func (f *retailFixture) payableOf(t *testing.T, purchaseId string) *models.Payable {
	t.Helper()
	payables, err := models.GetPayables(f.ctx)
	if err != nil {
		t.Fatalf("GetPayables: %v", err)
	}
	for _, p := range payables {
		if p.PurchaseId == purchaseId {
			return p
		}
	}
	return nil
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("retail-test-redis-%d", time.Now().UnixNano())
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
	name := fmt.Sprintf("retail-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=retail_test",
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
	// Example: "127.0.0.1:49154\n"
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
