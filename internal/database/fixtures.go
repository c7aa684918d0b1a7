package database

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/marshallshelly/pebble-study/internal/models"
	"github.com/marshallshelly/pebble-study/pkg/session"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the sample data set loaded by the seed command.
type Fixtures struct {
	Products []ProductFixture `yaml:"products"`
	Students []StudentFixture `yaml:"students"`
	Shop     ShopFixture      `yaml:"shop"`
	Groups   []GroupFixture   `yaml:"groups"`
}

type ProductFixture struct {
	Name     string `yaml:"name"`
	Price    int    `yaml:"price"`
	Category string `yaml:"category"`
}

type StudentFixture struct {
	Name  string `yaml:"name"`
	City  string `yaml:"city"`
	Major string `yaml:"major"`
}

// ShopFixture lists users with the goods names they bought.
type ShopFixture struct {
	Users []struct {
		Name      string   `yaml:"name"`
		Purchases []string `yaml:"purchases"`
	} `yaml:"users"`
	Goods []string `yaml:"goods"`
}

type GroupFixture struct {
	Name  string `yaml:"name"`
	Idols []struct {
		Name string `yaml:"name"`
		Age  int    `yaml:"age"`
	} `yaml:"idols"`
}

// DefaultFixtures returns the embedded sample data.
func DefaultFixtures() (*Fixtures, error) {
	return ParseFixtures(defaultFixtures)
}

// LoadFixtures reads fixtures from a YAML file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes YAML fixtures and checks product categories.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for _, p := range f.Products {
		if p.Category == "" {
			continue
		}
		if _, err := models.ParseCategory(p.Category); err != nil {
			return nil, fmt.Errorf("product %q: %w", p.Name, err)
		}
	}
	for _, u := range f.Shop.Users {
		for _, g := range u.Purchases {
			if !containsName(f.Shop.Goods, g) {
				return nil, fmt.Errorf("user %q bought unknown goods %q", u.Name, g)
			}
		}
	}
	return &f, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// SeedResult counts the rows written by Seed.
type SeedResult struct {
	Products  int
	Students  int
	Users     int
	Goods     int
	Purchases int
	Groups    int
	Idols     int
}

// Seed saves the fixtures. Independent aggregates are written
// concurrently; the first failure cancels the rest.
func (a *App) Seed(ctx context.Context, f *Fixtures) (SeedResult, error) {
	var res SeedResult
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		for _, pf := range f.Products {
			prod := models.NewProduct(pf.Name, pf.Price, models.Category(pf.Category))
			if _, err := a.Repos.Products.Save(ctx, prod); err != nil {
				return fmt.Errorf("seed product %q: %w", pf.Name, err)
			}
		}
		res.Products = len(f.Products)
		return nil
	})

	p.Go(func(ctx context.Context) error {
		for _, sf := range f.Students {
			st := &models.Student{Name: sf.Name, City: sf.City, Major: sf.Major}
			if _, err := a.Repos.Students.Save(ctx, st); err != nil {
				return fmt.Errorf("seed student %q: %w", sf.Name, err)
			}
		}
		res.Students = len(f.Students)
		return nil
	})

	p.Go(func(ctx context.Context) error {
		n, err := a.seedShop(ctx, f.Shop)
		if err != nil {
			return err
		}
		res.Users, res.Goods, res.Purchases = len(f.Shop.Users), len(f.Shop.Goods), n
		return nil
	})

	p.Go(func(ctx context.Context) error {
		n, err := a.seedGroups(ctx, f.Groups)
		if err != nil {
			return err
		}
		res.Groups, res.Idols = len(f.Groups), n
		return nil
	})

	if err := p.Wait(); err != nil {
		return SeedResult{}, err
	}
	a.Log.Info("seeded fixtures",
		zap.Int("products", res.Products),
		zap.Int("students", res.Students),
		zap.Int("purchases", res.Purchases),
		zap.Int("idols", res.Idols),
	)
	return res, nil
}

// seedShop writes goods, users and purchases in one transaction.
func (a *App) seedShop(ctx context.Context, shop ShopFixture) (int, error) {
	purchases := 0
	err := a.Session.Transaction(ctx, func(tx *session.Session) error {
		repos := NewRepositories(tx)
		goods := make(map[string]*models.Goods, len(shop.Goods))
		for _, name := range shop.Goods {
			g := &models.Goods{Name: name}
			if _, err := repos.Goods.Save(ctx, g); err != nil {
				return fmt.Errorf("seed goods %q: %w", name, err)
			}
			goods[name] = g
		}
		for _, uf := range shop.Users {
			u := &models.User{Name: uf.Name}
			if _, err := repos.Users.Save(ctx, u); err != nil {
				return fmt.Errorf("seed user %q: %w", uf.Name, err)
			}
			for _, name := range uf.Purchases {
				if _, err := repos.Purchases.Save(ctx, models.NewPurchase(u, goods[name])); err != nil {
					return fmt.Errorf("seed purchase %s/%s: %w", uf.Name, name, err)
				}
				purchases++
			}
		}
		return nil
	})
	return purchases, err
}

// seedGroups writes each group and its idols in one transaction.
func (a *App) seedGroups(ctx context.Context, groups []GroupFixture) (int, error) {
	idols := 0
	err := a.Session.Transaction(ctx, func(tx *session.Session) error {
		repos := NewRepositories(tx)
		for _, gf := range groups {
			g := models.NewGroup(gf.Name)
			if _, err := repos.Groups.Save(ctx, g); err != nil {
				return fmt.Errorf("seed group %q: %w", gf.Name, err)
			}
			for _, inf := range gf.Idols {
				if _, err := repos.Idols.Save(ctx, models.NewIdol(inf.Name, inf.Age, g)); err != nil {
					return fmt.Errorf("seed idol %q: %w", inf.Name, err)
				}
				idols++
			}
		}
		return nil
	})
	return idols, err
}
