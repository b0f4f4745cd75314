// Package entidex embeds the entidex entity store and search engine
// in-process, backed by SQLite or Redis with the search module.
//
// Every entity kind is declared up front with its searchable fields.
// Creating an entity also writes its index document; searches run over the
// index documents and return the stored entities.
//
//	client, _ := entidex.New(ctx,
//	    entidex.WithSQLite("entidex.db"),
//	    entidex.WithKind("project",
//	        entidex.StringField("name").Fulltext(),
//	        entidex.EnumField("status"),
//	        entidex.NumberField("budget"),
//	    ),
//	)
//	defer client.Close()
//
//	_, _ = client.Init(ctx)
//	_, _ = client.Entities("project").Create(ctx, []byte(`{"id":"p1","name":"Apollo","status":"active"}`))
//
//	page, _ := client.Search("project").
//	    Where("status").In("active", "paused").
//	    Where("budget").Gte(1000).
//	    OrderBy("name", entidex.Asc).
//	    PageSize(50).
//	    Count().
//	    Do(ctx)
//
// A configuration file written for the server can be reused with
// WithConfigFile.
package entidex
