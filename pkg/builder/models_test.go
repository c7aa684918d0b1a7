package builder

type student struct {
	ID    string `po:"stu_id,primaryKey,varchar(36),generator(uuid)"`
	Name  string `po:"stu_name,varchar(255),notNull"`
	City  string `po:"city,varchar(255)"`
	Major string `po:"major,varchar(255)"`
}

func (student) TableName() string { return "tbl_student" }

type product struct {
	ID       int64  `po:"product_id,primaryKey,bigint,identity"`
	Name     string `po:"name,varchar(255),notNull"`
	Price    int    `po:"price,integer,notNull,default(10000)"`
	Category string `po:"category,varchar(20),notNull,default('FOOD')"`
}

func (product) TableName() string { return "tbl_product" }

type group struct {
	ID        int64  `po:"group_id,primaryKey,bigint,identity"`
	GroupName string `po:"group_name,varchar(255)"`
	Idols     []idol `po:"-,hasMany,foreignKey(group_id),references(group_id)"`
}

func (group) TableName() string { return "tbl_group" }

type idol struct {
	ID       int64  `po:"idol_id,primaryKey,bigint,identity"`
	IdolName string `po:"idol_name,varchar(255)"`
	Age      int    `po:"age,integer"`
	GroupID  *int64 `po:"group_id,bigint,fk(tbl_group.group_id)"`
	Group    *group `po:"-,belongsTo,foreignKey(group_id),references(group_id)"`
}

func (idol) TableName() string { return "tbl_idol" }
