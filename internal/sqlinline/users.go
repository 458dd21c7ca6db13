package sqlinline

const QInsertUser = `--sql 3f7c1a52-9e4d-4b6f-8a21-c05dfd13a970
insert into users (
    id, name, email, password_hash, avatar, is_active, verified,
    verification_code, verification_code_expires_at,
    google_id, google_email, google_picture, is_admin,
    created_at, updated_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
returning id, name, email, password_hash, avatar, is_active, verified,
    verification_code, verification_code_expires_at,
    google_id, google_email, google_picture, is_admin, created_at, updated_at;
`

const QSelectUserByID = `--sql 88f0b7de-6a3c-41d2-b5a9-e81d3a5c2f44
select id, name, email, password_hash, avatar, is_active, verified,
    verification_code, verification_code_expires_at,
    google_id, google_email, google_picture, is_admin, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`

const QSelectUserByEmail = `--sql 5d2e9c61-1b78-4f0a-9c3d-7aa4e8f61b02
select id, name, email, password_hash, avatar, is_active, verified,
    verification_code, verification_code_expires_at,
    google_id, google_email, google_picture, is_admin, created_at, updated_at
from users
where lower(email) = lower($1)
limit 1;
`

const QSelectUserByGoogleID = `--sql b41a6f09-3c85-47ee-a2d6-90cf51e87d13
select id, name, email, password_hash, avatar, is_active, verified,
    verification_code, verification_code_expires_at,
    google_id, google_email, google_picture, is_admin, created_at, updated_at
from users
where google_id = $1
limit 1;
`

const QUpdateUser = `--sql 7c90d2b4-52fa-4e18-bd67-31e8ca04f5a6
update users set
    name = $2,
    email = $3,
    password_hash = $4,
    avatar = $5,
    is_active = $6,
    verified = $7,
    verification_code = $8,
    verification_code_expires_at = $9,
    google_id = $10,
    google_email = $11,
    google_picture = $12,
    is_admin = $13,
    updated_at = now()
where id = $1::uuid
returning id, name, email, password_hash, avatar, is_active, verified,
    verification_code, verification_code_expires_at,
    google_id, google_email, google_picture, is_admin, created_at, updated_at;
`

const QDeleteUser = `--sql e6a83d17-94cb-4bf2-8d50-fa12b76c03e9
delete from users where id = $1::uuid;
`

const QListUsers = `--sql 2b5fe840-cd16-4a97-b3e8-6d901fa24c75
select id, name, email, password_hash, avatar, is_active, verified,
    verification_code, verification_code_expires_at,
    google_id, google_email, google_picture, is_admin, created_at, updated_at
from users
order by created_at desc
limit $1 offset $2;
`
